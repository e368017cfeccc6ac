package steamgifts

import (
	"context"
	"fmt"
	"steamtrades-client/lib/scrapers/steamforum"

	"go.opentelemetry.io/otel/codes"
)

// Configure turns on the account filters that hide giveaways the user could
// never enter: games already owned, DLC without the base game and giveaways
// above the user's level.
func (c *Client) Configure(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Configure")
	defer span.End()

	err := c.configure(ctx)
	c.report(ctx, report_client_configure, "configure", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "configure failed")
	}
	return err
}

func (c *Client) configure(ctx context.Context) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.opts.Headers).
		Get(c.opts.ConfigPage)
	if err != nil {
		return fmt.Errorf("fetch settings page: %w", err)
	}
	page, err := steamforum.ParsePage(res.Body())
	if err != nil {
		return err
	}

	fields, ok := page.FormValues()
	if !ok || fields.Get("xsrf_token") == "" {
		return fmt.Errorf("%w: settings page has no xsrf_token", steamforum.ErrMalformedPage)
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetHeaders(c.opts.Headers).
		SetFormData(map[string]string{
			"xsrf_token":                         fields.Get("xsrf_token"),
			"filter_giveaways_exist_in_account":  "1",
			"filter_giveaways_missing_base_game": "1",
			"filter_giveaways_level":             "1",
		}).
		Post(c.opts.ConfigPage)
	if err != nil {
		return &steamforum.Error{
			Kind:    steamforum.KindConfigure,
			Message: fmt.Sprintf("post settings: %s", err.Error()),
		}
	}
	if res.IsError() {
		return &steamforum.Error{
			Kind:    steamforum.KindConfigure,
			Message: fmt.Sprintf("post settings: unexpected status %s", res.Status()),
		}
	}
	return nil
}
