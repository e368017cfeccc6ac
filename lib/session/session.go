// Package session builds the long-lived HTTP session shared by the site
// clients. The clients only ever borrow it: they set per-request headers and
// never close or reconfigure it.
package session

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"steamtrades-client/internal/assert"
	"steamtrades-client/lib/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Cookie struct {
	// Url is the site the cookie belongs to, ex. "https://steamcommunity.com"
	Url   string `json:"url"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Options struct {
	UserAgent      string `json:"user_agent"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// RequestsPerSecond paces every request made through the session, 0 disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second"`
	// Cloudflare wraps the transport with a browser-like TLS/header fingerprint.
	Cloudflare bool `json:"cloudflare"`
	// AllowedHosts restricts redirects to these hosts, empty allows any host.
	// The OpenID handshake bounces between the forum and steamcommunity.com so
	// both need to be listed when set.
	AllowedHosts []string `json:"allowed_hosts"`
	Cookies      []Cookie `json:"cookies"`
}

// New creates a resty client with a cookie jar seeded from opts.Cookies.
func New(opts Options, tel telemetry.API) (*resty.Client, error) {
	assert.NotNil(tel)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	err = seedCookies(jar, opts.Cookies)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	if opts.Cloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)

	if len(opts.AllowedHosts) > 0 {
		client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(opts.AllowedHosts...))
	} else {
		client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	}

	timeout := time.Second * 30
	if opts.TimeoutSeconds > 0 {
		timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
	client.SetTimeout(timeout)

	if opts.RequestsPerSecond > 0 {
		// burst of 1 so that concurrent bumps are spread out instead of fired at once
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, tel)

	return client, nil
}

func seedCookies(jar http.CookieJar, cookies []Cookie) error {
	for _, c := range cookies {
		u, err := url.Parse(c.Url)
		if err != nil {
			return fmt.Errorf("cookie %s: %w", c.Name, err)
		}
		if u.Host == "" {
			return fmt.Errorf("cookie %s: url %q has no host", c.Name, c.Url)
		}
		jar.SetCookies(u, []*http.Cookie{{
			Name:   c.Name,
			Value:  c.Value,
			Path:   "/",
			Secure: u.Scheme == "https",
		}})
	}
	return nil
}
