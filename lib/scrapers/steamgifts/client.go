package steamgifts

import (
	"context"
	"steamtrades-client/internal/assert"
	"steamtrades-client/lib/scrapers/steamforum"
	"steamtrades-client/lib/telemetry"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("steamtrades-client/steamgifts")
var meter = otel.Meter("steamtrades-client/steamgifts")

var outcomeCounter, _ = meter.Int64Counter(
	"steamgifts.outcomes",
	metric.WithDescription("steamgifts operation outcomes by kind"),
)

const (
	report_client_login         = "client.login"
	report_client_configure     = "client.configure"
	report_client_giveaways     = "client.giveaways"
	report_client_join          = "client.join"
	report_giveaway_unavailable = "giveaways.unavailable"
)

const (
	avatarSelector = "a.nav__avatar-outer-wrap"
	site           = "steamgifts"
)

type Options struct {
	Server     string            `json:"server"`
	JoinScript string            `json:"join_script"`
	SearchPage string            `json:"search_page"`
	ConfigPage string            `json:"config_page"`
	LoginPage  string            `json:"login_page"`
	OpenIdUrl  string            `json:"openid_url"`
	Headers    map[string]string `json:"headers"`
}

func DefaultOptions() Options {
	return Options{
		Server:     "https://www.steamgifts.com",
		JoinScript: "ajax.php",
		SearchPage: "https://www.steamgifts.com/giveaways/search",
		ConfigPage: "https://www.steamgifts.com/account/settings/giveaways",
		LoginPage:  "https://steamgifts.com/?login",
		OpenIdUrl:  "https://steamcommunity.com/openid",
	}
}

// UserInfo is what the giveaway search page says about the signed in user.
type UserInfo struct {
	Points int
	Level  int
}

// Client talks to steamgifts through a borrowed session. Unlike the
// steamtrades client it remembers the user's points and level between
// Giveaways and Join, that state is guarded by a mutex.
type Client struct {
	http *resty.Client
	opts Options
	tel  telemetry.API

	mutex    sync.Mutex
	userInfo UserInfo
}

func NewClient(http *resty.Client, opts Options, tel telemetry.API) *Client {
	assert.NotNil(http)
	assert.NotNil(tel)

	defaults := DefaultOptions()
	if opts.Server == "" {
		opts.Server = defaults.Server
	}
	if opts.JoinScript == "" {
		opts.JoinScript = defaults.JoinScript
	}
	if opts.SearchPage == "" {
		opts.SearchPage = defaults.SearchPage
	}
	if opts.ConfigPage == "" {
		opts.ConfigPage = defaults.ConfigPage
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
		tel:  telemetry.NewScopedAPI("steamgifts", tel),
	}
}

// UserInfo returns the points and level seen on the last Giveaways call,
// minus the points spent by Join since.
func (c *Client) UserInfo() UserInfo {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.userInfo
}

func (c *Client) setUserInfo(info UserInfo) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.userInfo = info
}

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
