package backend

import (
	"context"

	"github.com/cccteam/accessgate/sessioninfo"
)

var (
	_ Exchanger = (*Client)(nil)
	_ AdminAPI  = (*Client)(nil)
)

// Exchanger trades an identity token set for a session record and session token.
type Exchanger interface {
	Exchange(ctx context.Context, identity *sessioninfo.Identity) (*Grant, error)
}

// AdminAPI is the user administration surface of the backend. Every call is authorized with
// the caller's session token.
type AdminAPI interface {
	ListUsers(ctx context.Context, token string) ([]User, error)
	UpdateAccess(ctx context.Context, token string, update *AccessUpdate) (*User, error)
	UpdateStatus(ctx context.Context, token string, update *StatusUpdate) (*User, error)
	DeleteUser(ctx context.Context, token, id string) error
}
