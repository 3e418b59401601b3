package access

import (
	"context"

	"github.com/cccteam/accessgate/sessioninfo"
)

// SessionReader provides read access to the current session. A missing session is
// reported as a nil Session and a nil error.
type SessionReader interface {
	Get(ctx context.Context) (*sessioninfo.Session, error)
}

// Evaluator produces an access decision for the current session.
type Evaluator interface {
	Evaluate(ctx context.Context) (Decision, error)
}
