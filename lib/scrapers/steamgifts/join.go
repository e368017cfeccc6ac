package steamgifts

import (
	"context"
	"fmt"
	"steamtrades-client/lib/htmlutil"
	"steamtrades-client/lib/scrapers/steamforum"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const sidebarSelector = "div.sidebar"

// Join enters a giveaway returned by Giveaways. It returns true when the site
// accepted the entry, the giveaway's points are then deducted from UserInfo.
func (c *Client) Join(ctx context.Context, giveaway GiveawayInfo) (bool, error) {
	ctx, span := tracer.Start(ctx, "client:Join")
	defer span.End()
	span.SetAttributes(attribute.String("giveaway_id", giveaway.Id))

	joined, err := c.join(ctx, giveaway)
	c.report(ctx, report_client_join, "join", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "join failed")
		return false, err
	}
	span.SetAttributes(attribute.Bool("joined", joined))
	return joined, nil
}

// reserve checks the requirements of giveaway and takes its points in the
// same critical section, so concurrent joins can never overdraw UserInfo.
func (c *Client) reserve(giveaway GiveawayInfo) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.userInfo.Level < giveaway.Level {
		return steamforum.NewError(
			steamforum.KindNoLevel,
			fmt.Sprintf("user doesn't have the level required to join %s", giveaway.Id),
		)
	}
	if c.userInfo.Points < giveaway.Points {
		return steamforum.NewError(
			steamforum.KindNoPoints,
			fmt.Sprintf("user doesn't have the points required to join %s", giveaway.Id),
		)
	}
	c.userInfo.Points -= giveaway.Points
	return nil
}

func (c *Client) refund(points int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.userInfo.Points += points
}

func (c *Client) join(ctx context.Context, giveaway GiveawayInfo) (bool, error) {
	err := c.reserve(giveaway)
	if err != nil {
		return false, err
	}
	joined, err := c.enter(ctx, giveaway)
	if err != nil || !joined {
		c.refund(giveaway.Points)
	}
	return joined, err
}

func (c *Client) enter(ctx context.Context, giveaway GiveawayInfo) (bool, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.opts.Headers).
		Get(c.opts.Server + giveaway.Query)
	if err != nil {
		return false, fmt.Errorf("fetch giveaway %s: %w", giveaway.Id, err)
	}
	page, err := steamforum.ParsePage(res.Body())
	if err != nil {
		return false, err
	}

	if !page.Has(avatarSelector) {
		return false, steamforum.NewError(steamforum.KindLogin, "user is not logged in")
	}
	sidebar, ok := htmlutil.First(page.Doc.Selection, sidebarSelector)
	if !ok {
		return false, steamforum.NewError(steamforum.KindNoGiveaways, "no giveaways available to join")
	}
	form, ok := htmlutil.First(sidebar, steamforum.SelectorForm)
	if !ok {
		return false, steamforum.NewError(
			steamforum.KindGiveawayEnded,
			fmt.Sprintf("giveaway %s has already ended", giveaway.Id),
		)
	}

	fields := htmlutil.FormValues(form)
	payload := map[string]string{"do": "entry_insert"}
	for _, name := range []string{"xsrf_token", "code"} {
		values := fields[name]
		if len(values) == 0 {
			return false, fmt.Errorf("%w: giveaway %s has no %s field", steamforum.ErrMalformedPage, giveaway.Id, name)
		}
		payload[name] = values[len(values)-1]
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetHeaders(c.opts.Headers).
		SetFormData(payload).
		Post(fmt.Sprintf("%s/%s", c.opts.Server, c.opts.JoinScript))
	if err != nil {
		return false, fmt.Errorf("post entry %s: %w", giveaway.Id, err)
	}
	return strings.Contains(string(res.Body()), "success"), nil
}
