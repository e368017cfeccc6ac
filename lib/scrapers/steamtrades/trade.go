package steamtrades

import (
	"context"
	"encoding/json"
	"fmt"
	"steamtrades-client/lib/htmlutil"
	"steamtrades-client/lib/scrapers/steamforum"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TradeInfo is a snapshot of a trade page. It is never modified after
// GetTradeInfo returns it.
type TradeInfo struct {
	// Id is the canonical id taken from the page url, the id passed to
	// GetTradeInfo may have been an alias.
	Id    string
	Title string
	Html  string
}

const titleLength = 22

// cooldownMarker is the only thing that tells a cooldown response apart from
// a successful one: success is HTML, a cooldown is a JSON envelope, and both
// come back with the same content type. A page that happened to contain this
// text would be misread as a cooldown.
const cooldownMarker = "Please wait another"

// tradeFromPath derives the canonical id and the display title from the path
// the trade page was finally served from, ex. /trade/abc12/some-trade-title.
func tradeFromPath(path string) (id, title string, err error) {
	id, err = steamforum.PathSegment(path, 2)
	if err != nil {
		return "", "", err
	}
	slug := path[strings.LastIndex(path, "/")+1:]
	title = htmlutil.Truncate(strings.ReplaceAll(slug, "-", " "), titleLength)
	return id, title, nil
}

func (c *Client) GetTradeInfo(ctx context.Context, tradeId string) (TradeInfo, error) {
	ctx, span := tracer.Start(ctx, "client:GetTradeInfo")
	defer span.End()
	span.SetAttributes(attribute.String("trade_id", tradeId))

	info, err := c.getTradeInfo(ctx, tradeId)
	if err != nil {
		c.tel.ReportBroken(report_client_get_trade_info, err, tradeId)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get trade info")
		return TradeInfo{}, err
	}
	return info, nil
}

func (c *Client) getTradeInfo(ctx context.Context, tradeId string) (TradeInfo, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.opts.Headers).
		Get(fmt.Sprintf("%s/trade/%s/", c.opts.Server, tradeId))
	if err != nil {
		return TradeInfo{}, fmt.Errorf("fetch trade %s: %w", tradeId, err)
	}

	// RawResponse.Request is the last request of the redirect chain
	path := res.RawResponse.Request.URL.Path
	id, title, err := tradeFromPath(path)
	if err != nil {
		return TradeInfo{}, err
	}

	return TradeInfo{
		Id:    id,
		Title: title,
		Html:  string(res.Body()),
	}, nil
}

type cooldownEnvelope struct {
	PopupHeadingH2 []string `json:"popup_heading_h2"`
}

// minutesLeft reads "Please wait another 7 minutes ..." out of the cooldown
// envelope, the number is always the fourth word.
func minutesLeft(body []byte) (int, error) {
	var envelope cooldownEnvelope
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return 0, fmt.Errorf("%w: cooldown envelope: %s", steamforum.ErrMalformedPage, err.Error())
	}
	if len(envelope.PopupHeadingH2) == 0 {
		return 0, fmt.Errorf("%w: cooldown envelope has no popup_heading_h2", steamforum.ErrMalformedPage)
	}

	words := strings.Split(envelope.PopupHeadingH2[0], " ")
	if len(words) < 4 {
		return 0, fmt.Errorf("%w: unexpected cooldown message %q", steamforum.ErrMalformedPage, envelope.PopupHeadingH2[0])
	}
	minutes, err := strconv.Atoi(words[3])
	if err != nil {
		return 0, fmt.Errorf("%w: cooldown minutes: %s", steamforum.ErrMalformedPage, err.Error())
	}
	return minutes, nil
}

// bumpTable checks the preconditions of a bump against the stored trade page.
// It runs on the snapshot, the session is not probed again.
func bumpTable(info TradeInfo) steamforum.Table {
	return steamforum.Table{
		{
			Name:  "not-logged-in",
			Match: steamforum.Absent(avatarSelector),
			Err:   steamforum.NewError(steamforum.KindLogin, "user is not logged in"),
		},
		{
			Name:  "trade-closed",
			Match: steamforum.Present(tradeOpenSelector),
			Err: &steamforum.Error{
				Kind:       steamforum.KindTradeClosed,
				Message:    fmt.Sprintf("trade %s is closed", info.Id),
				TradeId:    info.Id,
				TradeTitle: info.Title,
			},
		},
		{
			Name:  "no-trades",
			Match: steamforum.Absent(steamforum.SelectorForm),
			Err:   steamforum.NewError(steamforum.KindNoTrades, "no trades available to bump"),
		},
	}
}

// Bump refreshes the trade listing. It returns true when the trade shows up
// on the trades listing afterwards. The listing can lag behind, so false does
// not mean the bump was rejected.
func (c *Client) Bump(ctx context.Context, info TradeInfo) (bool, error) {
	ctx, span := tracer.Start(ctx, "client:Bump")
	defer span.End()
	span.SetAttributes(attribute.String("trade_id", info.Id))

	bumped, err := c.bump(ctx, info)
	c.report(ctx, report_client_bump, "bump", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bump failed")
		return false, err
	}
	span.SetAttributes(attribute.Bool("bumped", bumped))
	return bumped, nil
}

func (c *Client) bump(ctx context.Context, info TradeInfo) (bool, error) {
	page, err := steamforum.ParsePage([]byte(info.Html))
	if err != nil {
		return false, err
	}
	_, _, err = bumpTable(info).Decide(page)
	if err != nil {
		return false, err
	}

	fields, _ := page.FormValues()
	payload := map[string]string{"do": "trade_bump"}
	for _, name := range []string{"code", "xsrf_token"} {
		values := fields[name]
		if len(values) == 0 {
			return false, fmt.Errorf("%w: trade %s has no %s field", steamforum.ErrMalformedPage, info.Id, name)
		}
		// a repeated field resolves to its last occurrence, like a posted form would
		payload[name] = values[len(values)-1]
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.opts.Headers).
		SetFormData(payload).
		Post(fmt.Sprintf("%s/%s", c.opts.Server, c.opts.BumpScript))
	if err != nil {
		return false, fmt.Errorf("post bump %s: %w", info.Id, err)
	}

	if strings.Contains(string(res.Body()), cooldownMarker) {
		minutes, err := minutesLeft(res.Body())
		if err != nil {
			return false, err
		}
		return false, &steamforum.Error{
			Kind:        steamforum.KindTradeNotReady,
			Message:     fmt.Sprintf("trade %s is not ready", info.Id),
			TradeId:     info.Id,
			TradeTitle:  info.Title,
			MinutesLeft: minutes,
		}
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetHeaders(c.opts.Headers).
		Get(fmt.Sprintf("%s/trades", c.opts.Server))
	if err != nil {
		return false, fmt.Errorf("fetch trades listing: %w", err)
	}
	return strings.Contains(string(res.Body()), info.Id), nil
}
