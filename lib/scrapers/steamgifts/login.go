package steamgifts

import (
	"context"
	"net/url"
	"steamtrades-client/lib/scrapers/steamforum"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type LoginResult struct {
	Success  bool
	Nickname string
	Fields   url.Values
}

// Map flattens the result the same way steamtrades.LoginResult.Map does,
// with "nickname" in place of "steamid".
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
	out["nickname"] = r.Nickname
	return out
}

func (c *Client) Login(ctx context.Context) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	handshake := steamforum.Handshake{
		Http:           c.http,
		Site:           site,
		LoginPage:      c.opts.LoginPage,
		OpenIdUrl:      c.opts.OpenIdUrl,
		AvatarSelector: avatarSelector,
		Headers:        c.opts.Headers,
	}
	res, err := handshake.Run(ctx)
	var nickname string
	if err == nil {
		// avatar links look like /user/<nickname>
		nickname, err = steamforum.PathSegment(res.AvatarHref, 2)
	}

	c.report(ctx, report_client_login, "login", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return LoginResult{}, err
	}

	span.SetAttributes(attribute.String("nickname", nickname))
	return LoginResult{
		Success:  true,
		Nickname: nickname,
		Fields:   res.Fields,
	}, nil
}
