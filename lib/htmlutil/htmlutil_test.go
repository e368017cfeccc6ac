package htmlutil

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestFormValues(t *testing.T) {
	doc := parse(t, `
		<form>
			<input name="action" value="steam_openid_login">
			<input name="openid.mode" value="checkid_setup">
			<input type="submit" value="Sign in">
			<input name="nonce">
			<input name="openid.mode" value="second">
			<input name="empty" value="">
		</form>`)

	values := FormValues(doc.Find("form").First())
	expected := url.Values{
		"action":      {"steam_openid_login"},
		"openid.mode": {"checkid_setup", "second"},
		"empty":       {""},
	}
	if diff := cmp.Diff(expected, values); diff != "" {
		t.Fatalf("form values mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstContains(t *testing.T) {
	doc := parse(t, `
		<div class="notification">Welcome</div>
		<div class="notification notification--warning">Please wait 15 seconds</div>
		<div class="notification--warning">public Steam profile</div>`)

	require.True(t, FirstContains(doc.Selection, "div.notification--warning", "Please wait"))
	require.False(t, FirstContains(doc.Selection, "div.notification--warning", "public Steam profile"))
	require.True(t, FirstContains(doc.Selection, "div.notification", "Welcome"))
	require.False(t, FirstContains(doc.Selection, "a.nav__button", "Suspensions"))
}

func TestDigits(t *testing.T) {
	testCases := []struct {
		in       string
		expected int
		fails    bool
	}{
		{in: "Level 3+", expected: 3},
		{in: "(1,250P)", expected: 1250},
		{in: "(15P)", expected: 15},
		{in: "none", fails: true},
	}

	for _, test := range testCases {
		n, err := Digits(test.in)
		if test.fails {
			require.Error(t, err, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		require.Equal(t, test.expected, n, test.in)
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "some long trade title ...", Truncate("some long trade title here", 22))
	require.Equal(t, "short...", Truncate("short", 22))
	require.Equal(t, "ĄĘŚ...", Truncate("ĄĘŚĆ", 3))
}

func TestFollowingMatches(t *testing.T) {
	doc := parse(t, `
		<div class="row">before</div>
		<div class="heading"><div class="row">inside</div></div>
		<div class="row">after</div>`)

	heading := doc.Find("div.heading")
	var texts []string
	FollowingMatches(doc, heading, "div.row").Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	require.Equal(t, []string{"inside", "after"}, texts)
}
