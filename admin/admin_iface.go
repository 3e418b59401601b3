package admin

import (
	"context"
)

var _ Administrator = (*Admin)(nil)

// Administrator manages the access of other users. Every operation is authorized with the
// session token of the signed in caller.
type Administrator interface {
	ListUsers(ctx context.Context) ([]UserView, error)
	UpdateAccess(ctx context.Context, change *AccessChange) (*UserView, error)
	UpdateStatus(ctx context.Context, change *StatusChange) (*UserView, error)
	Approve(ctx context.Context, userID, version string) (*UserView, error)
	Reject(ctx context.Context, userID, version string) (*UserView, error)
	DeleteUser(ctx context.Context, userID string) error
}

// SignOutFunc ends the caller's session. It is invoked when the backend rejects the
// caller's session token.
type SignOutFunc func(ctx context.Context) error
