package backend

import (
	"context"
	"net/http"

	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/accessgate/sessiontypes"
	"github.com/cccteam/ccc"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
)

// Exchange sends the identity token set to the backend. Every failure is returned as an
// *autherr.ExchangeError.
func (c *Client) Exchange(ctx context.Context, identity *sessioninfo.Identity) (*Grant, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	if identity == nil || identity.IDToken == "" {
		return nil, &autherr.ExchangeError{Err: errors.New("identity has no id token")}
	}

	req := &exchangeRequest{
		User: exchangeUser{
			ID:    identity.Profile.ID,
			Name:  identity.Profile.Name,
			Email: identity.Profile.Email,
			Image: identity.Profile.Image,
		},
		IDToken:     identity.IDToken,
		AccessToken: identity.AccessToken,
		Provider:    identity.Provider,
		Timestamp:   c.now().UnixMilli(),
	}

	var resp exchangeResponse
	if err := c.do(ctx, call{op: "exchange", method: http.MethodPost, path: c.exchangePath, body: req, out: &resp}); err != nil {
		return nil, &autherr.ExchangeError{Err: err}
	}

	grant, err := resp.grant(ctx)
	if err != nil {
		return nil, &autherr.ExchangeError{Err: err}
	}

	return grant, nil
}

func (r *exchangeResponse) grant(ctx context.Context) (*Grant, error) {
	if r.AccessToken == "" {
		return nil, errors.New("exchange response has no access_token")
	}
	if r.UserID == "" {
		return nil, errors.New("exchange response has no userId")
	}

	status, err := sessiontypes.ParseStatus(r.Status)
	if err != nil {
		return nil, errors.Wrap(err, "sessiontypes.ParseStatus()")
	}

	role := sessiontypes.RoleFromList(r.Roles)
	level := role.DefaultAccessLevel()
	if r.AccessLevel != "" {
		l, err := sessiontypes.ParseAccessLevel(r.AccessLevel)
		if err != nil {
			logger.FromCtx(ctx).Infof("user %s: %v, using %s", r.UserID, err, level)
		} else {
			level = l
		}
	}

	var pages sessiontypes.PageAccess
	if len(r.PageAccess) > 0 {
		pages = sessiontypes.PageAccess(r.PageAccess)
	}

	return &Grant{
		Token: r.AccessToken,
		Info: &sessioninfo.SessionInfo{
			UserID:          r.UserID,
			Email:           r.Email,
			Name:            r.Name,
			Status:          status,
			Role:            role,
			AccessLevel:     level,
			AccessStartTime: r.AccessStartTime,
			AccessEndTime:   r.AccessEndTime,
			PageAccess:      pages,
		},
	}, nil
}
