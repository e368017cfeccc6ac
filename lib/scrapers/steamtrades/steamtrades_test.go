package steamtrades

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"steamtrades-client/lib/scrapers/steamforum"
	"steamtrades-client/lib/telemetry"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "embed"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var (
	//go:embed testdata/trade_page.html
	tradePageHtml string
	//go:embed testdata/trade_closed.html
	tradeClosedHtml string
	//go:embed testdata/trade_logged_out.html
	tradeLoggedOutHtml string
	//go:embed testdata/trade_no_form.html
	tradeNoFormHtml string
	//go:embed testdata/trade_missing_token.html
	tradeMissingTokenHtml string
	//go:embed testdata/trades_listing.html
	tradesListingHtml string
	//go:embed testdata/login_form.html
	loginFormHtml string
	//go:embed testdata/logged_in.html
	loggedInHtml string
)

const tradeSlugPath = "/trade/abc12/some-long-trade-title-here"

// fakeSite serves the handful of steamtrades and steamcommunity pages the
// client touches.
type fakeSite struct {
	requests     int32
	bumpResponse string
	listing      string

	mutex      sync.Mutex
	bumpForms  []url.Values
	loginForms []url.Values
}

func (f *fakeSite) forms() (login, bump []url.Values) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]url.Values(nil), f.loginForms...), append([]url.Values(nil), f.bumpForms...)
}

func (f *fakeSite) handler(t testing.TB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.requests, 1)

		switch {
		case r.URL.Path == "/" && r.URL.RawQuery == "login":
			w.Write([]byte(loginFormHtml))
		case r.URL.Path == "/openid/login" && r.Method == http.MethodPost:
			if err := r.ParseForm(); err != nil {
				t.Error(err)
			}
			f.mutex.Lock()
			f.loginForms = append(f.loginForms, r.PostForm)
			f.mutex.Unlock()
			w.Write([]byte(loggedInHtml))
		case r.URL.Path == tradeSlugPath:
			w.Write([]byte(tradePageHtml))
		case strings.HasPrefix(r.URL.Path, "/trade/") && strings.HasSuffix(r.URL.Path, "/"):
			// ids and aliases resolve to the canonical slug url
			http.Redirect(w, r, tradeSlugPath, http.StatusMovedPermanently)
		case r.URL.Path == "/ajax.php" && r.Method == http.MethodPost:
			if err := r.ParseForm(); err != nil {
				t.Error(err)
			}
			f.mutex.Lock()
			f.bumpForms = append(f.bumpForms, r.PostForm)
			f.mutex.Unlock()
			w.Write([]byte(f.bumpResponse))
		case r.URL.Path == "/trades" && r.Method == http.MethodGet:
			w.Write([]byte(f.listing))
		default:
			http.NotFound(w, r)
		}
	})
}

func setup(t testing.TB, site *fakeSite) (*Client, *telemetry.RecorderAPI) {
	server := httptest.NewServer(site.handler(t))
	t.Cleanup(server.Close)

	recorder := &telemetry.RecorderAPI{}
	client := NewClient(resty.New(), Options{
		Server:    server.URL,
		LoginPage: server.URL + "/?login",
		OpenIdUrl: server.URL + "/openid",
		Headers:   map[string]string{"Referer": server.URL + "/trades"},
	}, recorder)
	return client, recorder
}

func TestLogin(t *testing.T) {
	site := &fakeSite{}
	client, _ := setup(t, site)

	result, err := client.Login(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "76561198012345678", result.SteamId)

	expectedFields := url.Values{
		"action":      {"steam_openid_login"},
		"openid.mode": {"checkid_setup"},
		"nonce":       {"n1", "n2"},
	}
	if diff := cmp.Diff(expectedFields, result.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	loginForms, _ := site.forms()
	require.Len(t, loginForms, 1)
	if diff := cmp.Diff(expectedFields, loginForms[0]); diff != "" {
		t.Fatalf("posted form mismatch (-want +got):\n%s", diff)
	}

	expectedMap := map[string]any{
		"success":     true,
		"steamid":     "76561198012345678",
		"action":      "steam_openid_login",
		"openid.mode": "checkid_setup",
		"nonce":       []string{"n1", "n2"},
	}
	if diff := cmp.Diff(expectedMap, result.Map()); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/openid/login" {
			w.Write([]byte(`<div class="notification">Your account must have a Steam level of 1 or higher.</div>`))
			return
		}
		w.Write([]byte(loginFormHtml))
	}))
	defer server.Close()

	recorder := &telemetry.RecorderAPI{}
	client := NewClient(resty.New(), Options{
		LoginPage: server.URL + "/?login",
		OpenIdUrl: server.URL + "/openid",
	}, recorder)

	_, err := client.Login(context.Background())
	require.ErrorIs(t, err, steamforum.ErrUserLevel)
	require.Len(t, recorder.Reports("warning"), 1)
	require.Empty(t, recorder.Reports("broken"))
}

func TestGetTradeInfo(t *testing.T) {
	site := &fakeSite{}
	client, _ := setup(t, site)

	for _, input := range []string{"abc12", "ABC12", "some-alias"} {
		info, err := client.GetTradeInfo(context.Background(), input)
		require.NoError(t, err)
		require.Equal(t, "abc12", info.Id, input)
		require.Equal(t, "some long trade title ...", info.Title, input)
		require.Equal(t, tradePageHtml, info.Html, input)
		require.True(t, strings.HasSuffix(info.Html, "\n"), "body is kept verbatim, trailing whitespace included")
	}

	first, err := client.GetTradeInfo(context.Background(), "abc12")
	require.NoError(t, err)
	second, err := client.GetTradeInfo(context.Background(), "abc12")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestTradeFromPath(t *testing.T) {
	testCases := []struct {
		path  string
		id    string
		title string
		fails bool
	}{
		{path: "/trade/123/some-long-trade-title-here", id: "123", title: "some long trade title ..."},
		{path: "/trade/123/short", id: "123", title: "short..."},
		{path: "/trade/123/", id: "123", title: "..."},
		{path: "/trade", fails: true},
	}

	for _, test := range testCases {
		id, title, err := tradeFromPath(test.path)
		if test.fails {
			require.ErrorIs(t, err, steamforum.ErrMalformedPage, test.path)
			continue
		}
		require.NoError(t, err, test.path)
		require.Equal(t, test.id, id, test.path)
		require.Equal(t, test.title, title, test.path)
	}
}

func TestBumpPreconditions(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected error
	}{
		{name: "logged out", html: tradeLoggedOutHtml, expected: steamforum.ErrLogin},
		{name: "closed", html: tradeClosedHtml, expected: steamforum.ErrTradeClosed},
		{name: "no form", html: tradeNoFormHtml, expected: steamforum.ErrNoTrades},
		{name: "missing token", html: tradeMissingTokenHtml, expected: steamforum.ErrMalformedPage},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			site := &fakeSite{}
			client, _ := setup(t, site)

			info := TradeInfo{Id: "abc12", Title: "some long trade title ...", Html: test.html}
			bumped, err := client.Bump(context.Background(), info)
			require.False(t, bumped)
			require.ErrorIs(t, err, test.expected)
			require.Equal(t, int32(0), atomic.LoadInt32(&site.requests), "no request should be made")
		})
	}
}

func TestBumpClosedCarriesTrade(t *testing.T) {
	client, _ := setup(t, &fakeSite{})

	info := TradeInfo{Id: "abc12", Title: "some long trade title ...", Html: tradeClosedHtml}
	_, err := client.Bump(context.Background(), info)

	var classified *steamforum.Error
	require.True(t, errors.As(err, &classified))
	require.Equal(t, steamforum.KindTradeClosed, classified.Kind)
	require.Equal(t, "abc12", classified.TradeId)
	require.Equal(t, "some long trade title ...", classified.TradeTitle)
}

func TestBumpNotReady(t *testing.T) {
	site := &fakeSite{bumpResponse: `{"popup_heading_h2":["Please wait another 7 minutes"]}`}
	client, recorder := setup(t, site)

	info := TradeInfo{Id: "abc12", Title: "some long trade title ...", Html: tradePageHtml}
	bumped, err := client.Bump(context.Background(), info)
	require.False(t, bumped)

	var classified *steamforum.Error
	require.True(t, errors.As(err, &classified))
	require.Equal(t, steamforum.KindTradeNotReady, classified.Kind)
	require.Equal(t, 7, classified.MinutesLeft)
	require.Equal(t, "abc12", classified.TradeId)
	require.Equal(t, "some long trade title ...", classified.TradeTitle)

	wait, ok := steamforum.RetryAfter(err)
	require.True(t, ok)
	require.Equal(t, 7*time.Minute, wait)

	// the listing is only checked after a successful bump
	require.Equal(t, int32(1), atomic.LoadInt32(&site.requests))
	require.Len(t, recorder.Reports("warning"), 1)

	expectedForm := url.Values{
		"code":       {"abc12"},
		"xsrf_token": {"0f9e8d7c6b5a"},
		"do":         {"trade_bump"},
	}
	_, bumpForms := site.forms()
	if diff := cmp.Diff(expectedForm, bumpForms[0]); diff != "" {
		t.Fatalf("bump form mismatch (-want +got):\n%s", diff)
	}
}

func TestBumpMalformedCooldown(t *testing.T) {
	site := &fakeSite{bumpResponse: `<div>Please wait another few minutes</div>`}
	client, recorder := setup(t, site)

	_, err := client.Bump(context.Background(), TradeInfo{Id: "abc12", Html: tradePageHtml})
	require.ErrorIs(t, err, steamforum.ErrMalformedPage)
	require.Equal(t, steamforum.KindUnknown, steamforum.KindOf(err))
	require.Len(t, recorder.Reports("broken"), 1)
}

func TestBumpConfirmation(t *testing.T) {
	testCases := []struct {
		name     string
		listing  string
		expected bool
	}{
		{name: "listed", listing: tradesListingHtml, expected: true},
		{name: "not listed yet", listing: "<html><body>No trades</body></html>", expected: false},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			site := &fakeSite{bumpResponse: "<html>ok</html>", listing: test.listing}
			client, _ := setup(t, site)

			info := TradeInfo{Id: "abc12", Title: "some long trade title ...", Html: tradePageHtml}
			bumped, err := client.Bump(context.Background(), info)
			require.NoError(t, err)
			require.Equal(t, test.expected, bumped)
			require.Equal(t, int32(2), atomic.LoadInt32(&site.requests))
		})
	}
}

func TestBumpConcurrent(t *testing.T) {
	site := &fakeSite{bumpResponse: "<html>ok</html>", listing: tradesListingHtml}
	client, _ := setup(t, site)

	info, err := client.GetTradeInfo(context.Background(), "abc12")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]bool, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Bump(context.Background(), info)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.True(t, results[i])
	}
	_, bumpForms := site.forms()
	require.Len(t, bumpForms, 8)
}

func TestMinutesLeft(t *testing.T) {
	minutes, err := minutesLeft([]byte(`{"type":"error","popup_heading_h2":["Please wait another 43 minutes to bump this trade."]}`))
	require.NoError(t, err)
	require.Equal(t, 43, minutes)

	_, err = minutesLeft([]byte(`{"popup_heading_h2":[]}`))
	require.ErrorIs(t, err, steamforum.ErrMalformedPage)

	_, err = minutesLeft([]byte(`{"popup_heading_h2":["Please wait"]}`))
	require.ErrorIs(t, err, steamforum.ErrMalformedPage)
}
