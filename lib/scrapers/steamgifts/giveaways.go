package steamgifts

import (
	"context"
	"fmt"
	"steamtrades-client/lib/htmlutil"
	"steamtrades-client/lib/scrapers/steamforum"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"
)

type GiveawayInfo struct {
	Name   string
	Copies int
	Points int
	Level  int
	// Query is the giveaway path relative to the server, ex. /giveaway/AbCd1/game.
	Query string
	Id    string
}

// GiveawayMain lists every giveaway, the other types are passed through as
// the search "type" parameter (wishlist, recommended, group, new, ...).
const GiveawayMain = "main"

const nameLength = 22

const (
	rowSelector           = "div.giveaway__row-outer-wrap"
	containerSelector     = "div.widget-container"
	headingSelector       = "div.page__heading"
	pinnedSelector        = "div.pinned-giveaways__outer-wrap"
	fadedSelector         = "div.is-faded"
	nameSelector          = "a.giveaway__heading__name"
	thinSelector          = "span.giveaway__heading__thin"
	levelColumnSelector   = "div.giveaway__column--contributor-level"
	pointsSelector        = "span.nav__points"
	unclassedSpanSelector = "span:not([class])"
)

// Giveaways lists the giveaways of the given type and refreshes UserInfo.
// Faded giveaways (already entered) are always skipped, the ones the user
// lacks the points or level for are skipped unless returnUnavailable is set.
func (c *Client) Giveaways(ctx context.Context, giveawayType string, returnUnavailable, pinned bool) ([]GiveawayInfo, error) {
	ctx, span := tracer.Start(ctx, "client:Giveaways")
	defer span.End()
	span.SetAttributes(attribute.String("type", giveawayType))

	giveaways, err := c.giveaways(ctx, giveawayType, returnUnavailable, pinned)
	c.report(ctx, report_client_giveaways, "giveaways", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list giveaways")
		return nil, err
	}
	span.SetAttributes(attribute.Int("count", len(giveaways)))
	return giveaways, nil
}

func (c *Client) giveaways(ctx context.Context, giveawayType string, returnUnavailable, pinned bool) ([]GiveawayInfo, error) {
	query := ""
	if giveawayType != GiveawayMain {
		query = "?type=" + giveawayType
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.opts.Headers).
		Get(c.opts.SearchPage + query)
	if err != nil {
		return nil, fmt.Errorf("fetch giveaways: %w", err)
	}
	page, err := steamforum.ParsePage(res.Body())
	if err != nil {
		return nil, err
	}

	user, err := parseUserInfo(page)
	if err != nil {
		return nil, err
	}
	c.setUserInfo(user)

	var giveaways []GiveawayInfo
	for _, row := range giveawayRows(page.Doc, pinned) {
		if row.Find(fadedSelector).Length() > 0 {
			continue
		}
		giveaway, err := parseGiveaway(row)
		if err != nil {
			return nil, err
		}
		if !returnUnavailable && (user.Level < giveaway.Level || user.Points < giveaway.Points) {
			c.tel.ReportWarning(report_giveaway_unavailable, giveaway.Id, giveaway.Level, giveaway.Points)
			continue
		}
		giveaways = append(giveaways, giveaway)
	}
	return giveaways, nil
}

func parseUserInfo(page steamforum.Page) (UserInfo, error) {
	if !page.Has(avatarSelector) {
		return UserInfo{}, steamforum.NewError(steamforum.KindLogin, "user is not logged in")
	}

	pointsText, ok := htmlutil.FirstText(page.Doc.Selection, pointsSelector)
	if !ok {
		return UserInfo{}, fmt.Errorf("%w: no points in the nav bar", steamforum.ErrMalformedPage)
	}
	points, err := htmlutil.Digits(pointsText)
	if err != nil {
		return UserInfo{}, fmt.Errorf("%w: points %q", steamforum.ErrMalformedPage, pointsText)
	}

	// the level is the only span without a class in the nav bar, ex. "Level 3"
	levelText, ok := htmlutil.FirstText(page.Doc.Selection, unclassedSpanSelector)
	if !ok {
		return UserInfo{}, fmt.Errorf("%w: no level in the nav bar", steamforum.ErrMalformedPage)
	}
	level, err := htmlutil.Digits(levelText)
	if err != nil {
		return UserInfo{}, fmt.Errorf("%w: level %q", steamforum.ErrMalformedPage, levelText)
	}

	return UserInfo{Points: points, Level: level}, nil
}

// giveawayRows returns the rows after the page heading, followed by the pinned
// rows when asked. A row is never returned twice.
func giveawayRows(doc *goquery.Document, pinned bool) []*goquery.Selection {
	container := doc.Find(containerSelector).First()
	heading := container.Find(headingSelector).First()

	seen := map[*html.Node]bool{}
	var rows []*goquery.Selection
	add := func(_ int, row *goquery.Selection) {
		if seen[row.Nodes[0]] {
			return
		}
		seen[row.Nodes[0]] = true
		rows = append(rows, row)
	}

	if heading.Length() > 0 {
		htmlutil.FollowingMatches(doc, heading, rowSelector).Each(add)
	}
	if pinned {
		container.Find(pinnedSelector).First().Find(rowSelector).Each(add)
	}
	return rows
}

func parseGiveaway(row *goquery.Selection) (GiveawayInfo, error) {
	head, ok := htmlutil.First(row, nameSelector)
	if !ok {
		return GiveawayInfo{}, fmt.Errorf("%w: giveaway row without a name", steamforum.ErrMalformedPage)
	}
	href, _ := head.Attr("href")
	id, err := steamforum.PathSegment(href, 2)
	if err != nil {
		return GiveawayInfo{}, err
	}

	giveaway := GiveawayInfo{
		Name:   htmlutil.Truncate(head.Text(), nameLength),
		Copies: 1,
		Query:  href,
		Id:     id,
	}

	// "(3 Copies)" comes before "(15P)" when the giveaway has several copies
	var thin []string
	row.Find(thinSelector).Each(func(_ int, s *goquery.Selection) {
		thin = append(thin, s.Text())
	})
	if len(thin) > 0 && strings.Contains(thin[0], "Copies") {
		giveaway.Copies, err = htmlutil.Digits(thin[0])
		if err != nil {
			return GiveawayInfo{}, fmt.Errorf("%w: giveaway %s copies %q", steamforum.ErrMalformedPage, id, thin[0])
		}
		thin = thin[1:]
	}
	if len(thin) == 0 {
		return GiveawayInfo{}, fmt.Errorf("%w: giveaway %s has no points", steamforum.ErrMalformedPage, id)
	}
	giveaway.Points, err = htmlutil.Digits(thin[0])
	if err != nil {
		return GiveawayInfo{}, fmt.Errorf("%w: giveaway %s points %q", steamforum.ErrMalformedPage, id, thin[0])
	}

	if levelText, ok := htmlutil.FirstText(row, levelColumnSelector); ok {
		if level, err := htmlutil.Digits(levelText); err == nil {
			giveaway.Level = level
		}
	}

	return giveaway, nil
}
