package steamforum

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Handshake drives the forum login page -> steam OpenID exchange. Both sites
// render the same login flow, they only differ in the avatar markup that
// proves the session is authenticated.
type Handshake struct {
	Http           *resty.Client
	Site           string
	LoginPage      string
	OpenIdUrl      string
	AvatarSelector string
	Headers        map[string]string
}

type HandshakeResult struct {
	// Page is what the identity provider redirected back to.
	Page Page
	// AvatarHref is the href of the avatar link on Page.
	AvatarHref string
	// Fields are the login form inputs that were posted, verbatim.
	Fields url.Values
}

func (h Handshake) Run(ctx context.Context) (HandshakeResult, error) {
	res, err := h.Http.R().
		SetContext(ctx).
		SetHeaders(h.Headers).
		Get(h.LoginPage)
	if err != nil {
		return HandshakeResult{}, fmt.Errorf("fetch login page: %w", err)
	}
	page, err := ParsePage(res.Body())
	if err != nil {
		return HandshakeResult{}, err
	}

	fields, ok := page.FormValues()
	if !ok {
		_, _, err := BlockedLoginTable(h.Site).Decide(page)
		return HandshakeResult{}, err
	}

	res, err = h.Http.R().
		SetContext(ctx).
		SetHeaders(h.Headers).
		SetFormDataFromValues(fields).
		Post(strings.TrimRight(h.OpenIdUrl, "/") + "/login")
	if err != nil {
		return HandshakeResult{}, fmt.Errorf("post openid login: %w", err)
	}
	page, err = ParsePage(res.Body())
	if err != nil {
		return HandshakeResult{}, err
	}

	_, _, err = AuthenticatedTable(h.Site, h.AvatarSelector).Decide(page)
	if err != nil {
		return HandshakeResult{}, err
	}

	avatar, _ := page.Doc.Find(h.AvatarSelector).First().Attr("href")
	return HandshakeResult{
		Page:       page,
		AvatarHref: avatar,
		Fields:     fields,
	}, nil
}

// PathSegment returns the i-th "/" separated piece of href, counting the empty
// piece before a leading slash, so "/user/7656" has "7656" at index 2.
func PathSegment(href string, i int) (string, error) {
	parts := strings.Split(href, "/")
	if i >= len(parts) || parts[i] == "" {
		return "", fmt.Errorf("%w: no path segment %d in %q", ErrMalformedPage, i, href)
	}
	return parts[i], nil
}
