package access

import (
	"context"
	"time"

	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/ccc"
	"github.com/go-playground/errors/v5"
)

var (
	_ Evaluator     = (*Engine)(nil)
	_ SessionReader = ContextReader{}
)

// Engine evaluates the session held by a store.
type Engine struct {
	store SessionReader
	now   func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source. (default: time.Now)
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine returns an Engine reading sessions from store.
func NewEngine(store SessionReader, opts ...EngineOption) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate returns the decision for the current session.
func (e *Engine) Evaluate(ctx context.Context) (Decision, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	sess, err := e.store.Get(ctx)
	if err != nil {
		return Decision{Reason: ReasonNotSignedIn}, errors.Wrap(err, "SessionReader.Get()")
	}

	var info *sessioninfo.SessionInfo
	if sess != nil {
		info = sess.Info
	}

	return Decide(info, e.now()), nil
}

// ContextReader reads the session placed in the context by the session middleware. A
// context without a session reads as signed out.
type ContextReader struct{}

// Get returns the session held by ctx.
func (ContextReader) Get(ctx context.Context) (*sessioninfo.Session, error) {
	sess, _ := sessioninfo.Lookup(ctx)

	return sess, nil
}
