package steamtrades

import (
	"context"
	"net/url"
	"steamtrades-client/lib/scrapers/steamforum"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type LoginResult struct {
	Success bool
	SteamId string
	// Fields are the login form inputs, passed through to the caller untouched.
	Fields url.Values
}

// Map flattens the result into a single mapping. Form fields that appear once
// map to a string, repeated fields map to a []string in document order. The
// "success" and "steamid" keys are never shadowed by a form field.
func (r LoginResult) Map() map[string]any {
	out := make(map[string]any, len(r.Fields)+2)
	for name, values := range r.Fields {
		if len(values) == 1 {
			out[name] = values[0]
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	out["success"] = r.Success
	out["steamid"] = r.SteamId
	return out
}

// Login signs in through the steam OpenID handshake using whatever cookies
// the session carries. No retries are made, a KindTooFast error asks the
// caller to wait steamforum.TooFastWait.
func (c *Client) Login(ctx context.Context) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	result, err := c.login(ctx)
	c.report(ctx, report_client_login, "login", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return LoginResult{}, err
	}
	span.SetAttributes(attribute.String("steamid", result.SteamId))
	return result, nil
}

func (c *Client) login(ctx context.Context) (LoginResult, error) {
	handshake := steamforum.Handshake{
		Http:           c.http,
		Site:           site,
		LoginPage:      c.opts.LoginPage,
		OpenIdUrl:      c.opts.OpenIdUrl,
		AvatarSelector: avatarSelector,
		Headers:        c.opts.Headers,
	}
	res, err := handshake.Run(ctx)
	if err != nil {
		return LoginResult{}, err
	}

	steamId, err := steamforum.PathSegment(res.AvatarHref, 2)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		Success: true,
		SteamId: steamId,
		Fields:  res.Fields,
	}, nil
}
