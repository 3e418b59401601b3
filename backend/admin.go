package backend

import (
	"context"
	"net/http"

	"github.com/cccteam/ccc"
	"github.com/go-playground/errors/v5"
)

const (
	pathListUsers    = "/admin/users/list"
	pathUpdateAccess = "/admin/users/access"
	pathUpdateStatus = "/admin/users/status"
	pathDeleteUser   = "/admin/users/delete"
)

// ListUsers returns every user record.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	users := make([]User, 0)
	if err := c.do(ctx, call{op: "list users", method: http.MethodGet, path: pathListUsers, token: token, out: &users}); err != nil {
		return nil, errors.Wrap(err, "Client.do()")
	}

	return users, nil
}

// UpdateAccess changes a user's role, access level, window and page access.
func (c *Client) UpdateAccess(ctx context.Context, token string, update *AccessUpdate) (*User, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	user := &User{}
	if err := c.do(ctx, call{
		op:      "update access",
		method:  http.MethodPost,
		path:    pathUpdateAccess,
		token:   token,
		version: update.Version,
		body:    update,
		out:     user,
	}); err != nil {
		return nil, errors.Wrap(err, "Client.do()")
	}

	return user, nil
}

// UpdateStatus approves or rejects a user.
func (c *Client) UpdateStatus(ctx context.Context, token string, update *StatusUpdate) (*User, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	user := &User{}
	if err := c.do(ctx, call{
		op:      "update status",
		method:  http.MethodPost,
		path:    pathUpdateStatus,
		token:   token,
		version: update.Version,
		body:    update,
		out:     user,
	}); err != nil {
		return nil, errors.Wrap(err, "Client.do()")
	}

	return user, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	if err := c.do(ctx, call{op: "delete user", method: http.MethodPost, path: pathDeleteUser, token: token, body: &deleteRequest{ID: id}}); err != nil {
		return errors.Wrap(err, "Client.do()")
	}

	return nil
}
