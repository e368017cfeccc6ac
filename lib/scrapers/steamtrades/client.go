package steamtrades

import (
	"context"
	"steamtrades-client/internal/assert"
	"steamtrades-client/lib/scrapers/steamforum"
	"steamtrades-client/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("steamtrades-client/steamtrades")
var meter = otel.Meter("steamtrades-client/steamtrades")

var outcomeCounter, _ = meter.Int64Counter(
	"steamtrades.outcomes",
	metric.WithDescription("login and bump outcomes by operation and kind"),
)

const (
	report_client_login          = "client.login"
	report_client_get_trade_info = "client.get-trade-info"
	report_client_bump           = "client.bump"
)

const (
	avatarSelector    = "a.nav_avatar"
	tradeOpenSelector = "div.js_trade_open"
	site              = "steamtrades"
)

type Options struct {
	Server     string            `json:"server"`
	BumpScript string            `json:"bump_script"`
	LoginPage  string            `json:"login_page"`
	OpenIdUrl  string            `json:"openid_url"`
	Headers    map[string]string `json:"headers"`
}

func DefaultOptions() Options {
	return Options{
		Server:     "https://www.steamtrades.com",
		BumpScript: "ajax.php",
		LoginPage:  "https://steamtrades.com/?login",
		OpenIdUrl:  "https://steamcommunity.com/openid",
	}
}

// Client talks to steamtrades through a borrowed session. It holds no state of
// its own, so one Client can bump many trades concurrently.
type Client struct {
	http *resty.Client
	opts Options
	tel  telemetry.API
}

// NewClient creates a client, zero fields of opts fall back to DefaultOptions.
func NewClient(http *resty.Client, opts Options, tel telemetry.API) *Client {
	assert.NotNil(http)
	assert.NotNil(tel)

	defaults := DefaultOptions()
	if opts.Server == "" {
		opts.Server = defaults.Server
	}
	if opts.BumpScript == "" {
		opts.BumpScript = defaults.BumpScript
	}
	if opts.LoginPage == "" {
		opts.LoginPage = defaults.LoginPage
	}
	if opts.OpenIdUrl == "" {
		opts.OpenIdUrl = defaults.OpenIdUrl
	}

	return &Client{
		http: http,
		opts: opts,
		tel:  telemetry.NewScopedAPI("steamtrades", tel),
	}
}

// report records the outcome of an operation, classified failures are
// warnings, anything else means the client or the site broke.
func (c *Client) report(ctx context.Context, id, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = steamforum.KindOf(err).String()
		if steamforum.KindOf(err) == steamforum.KindUnknown {
			c.tel.ReportBroken(id, err)
		} else {
			c.tel.ReportWarning(id, err)
		}
	}
	outcomeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
