package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"steamtrades-client/lib/telemetry"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionCookiesAndHeaders(t *testing.T) {
	var gotCookie, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("PHPSESSID")
		if err == nil {
			gotCookie = c.Value
		}
		gotAgent = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client, err := New(Options{
		Cookies: []Cookie{{Url: server.URL, Name: "PHPSESSID", Value: "abc123"}},
	}, &telemetry.RecorderAPI{})
	require.NoError(t, err)

	_, err = client.R().Get(server.URL + "/trades")
	require.NoError(t, err)
	require.Equal(t, "abc123", gotCookie)
	require.Equal(t, DefaultUserAgent, gotAgent)
}

func TestSessionRejectsHostlessCookie(t *testing.T) {
	_, err := New(Options{
		Cookies: []Cookie{{Url: "/relative", Name: "a", Value: "b"}},
	}, &telemetry.RecorderAPI{})
	require.Error(t, err)
}

func TestSessionRateLimit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	client, err := New(Options{RequestsPerSecond: 20}, &telemetry.RecorderAPI{})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.R().SetContext(context.Background()).Get(server.URL)
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	require.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestSessionRateLimitCancelled(t *testing.T) {
	client, err := New(Options{RequestsPerSecond: 0.001}, &telemetry.RecorderAPI{})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	// the first token is free, the second would take ~16 minutes
	_, err = client.R().Get(server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.R().SetContext(ctx).Get(server.URL)
	require.Error(t, err)
}
