package lifecycle

import (
	"context"

	"github.com/cccteam/accessgate/sessioninfo"
)

var _ Lifecycle = (*Manager)(nil)

// Lifecycle drives a user through sign in, approval, refresh and sign out.
type Lifecycle interface {
	BeginSignIn(ctx context.Context) (started bool, err error)
	CompleteSignIn(ctx context.Context, identity *sessioninfo.Identity) (*sessioninfo.Session, error)
	Exchange(ctx context.Context, identity *sessioninfo.Identity) (*sessioninfo.Session, error)
	Refresh(ctx context.Context) (*sessioninfo.Session, error)
	SignOut(ctx context.Context) error
	Current(ctx context.Context) (*sessioninfo.Session, error)
	State() State
	Route(ctx context.Context) (Surface, error)
	Watch(ctx context.Context) error
	Close()
}
