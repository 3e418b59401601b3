// Package gate blocks state changing outbound requests that the current session may not make.
// Blocked requests fail locally without any network I/O.
package gate

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/cccteam/accessgate/access"
	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
)

// DefaultExemptions are URL path substrings that are never blocked, so a blocked user can
// still sign in again or sign out.
var DefaultExemptions = []string{"api/auth", "signout"}

// Gate checks outbound requests against the access decision for the current session.
type Gate struct {
	evaluator  access.Evaluator
	notifier   Notifier
	metrics    *Metrics
	exemptions []string

	mu       sync.Mutex
	installs map[*http.Client]*installation
}

type installation struct {
	original http.RoundTripper
	refs     int
}

// Option configures a Gate.
type Option func(*Gate)

// WithNotifier sets the receiver of blocked request notices. (default: LogNotifier)
func WithNotifier(n Notifier) Option {
	return func(g *Gate) {
		g.notifier = n
	}
}

// WithMetrics counts checked requests in metrics.
func WithMetrics(m *Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithExemptions replaces the URL path substrings that bypass the gate. Pass none to check
// every request. (default: DefaultExemptions)
func WithExemptions(exemptions ...string) Option {
	return func(g *Gate) {
		g.exemptions = exemptions
	}
}

// New returns a Gate that asks evaluator for the decision on each state changing request.
func New(evaluator access.Evaluator, opts ...Option) *Gate {
	g := &Gate{
		evaluator:  evaluator,
		notifier:   LogNotifier{},
		exemptions: DefaultExemptions,
		installs:   make(map[*http.Client]*installation),
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Check returns an *autherr.AccessDeniedError when req must not be sent.
func (g *Gate) Check(req *http.Request) error {
	if SafeMethod(req.Method) {
		g.metrics.observe(OutcomeSafe)

		return nil
	}

	if g.exempt(req.URL.Path) {
		g.metrics.observe(OutcomeExempt)

		return nil
	}

	ctx := req.Context()
	decision, err := g.evaluator.Evaluate(ctx)
	if err != nil {
		logger.FromCtx(ctx).Error(errors.Wrap(err, "access.Evaluator.Evaluate()"))
	}

	reason := decision.MutationReason(pageOf(req))
	if reason == access.ReasonNone {
		g.metrics.observe(OutcomeAllowed)

		return nil
	}

	target := req.URL.String()
	g.metrics.observe(OutcomeBlocked)
	g.notifier.Notify(ctx, Notice{Method: req.Method, URL: target, Reason: reason, Message: Message(reason)})

	return &autherr.AccessDeniedError{Method: req.Method, URL: target, Reason: string(reason)}
}

// SafeMethod reports if method is one of the safe methods of RFC 9110 section 9.2.1, which
// never change state.
func SafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}

	return false
}

type pageKey struct{}

// WithPage returns a copy of ctx recording the portal page that requests made with it are
// issued from. Page grants are matched against it instead of the outbound URL path.
func WithPage(ctx context.Context, page string) context.Context {
	return context.WithValue(ctx, pageKey{}, page)
}

func pageOf(req *http.Request) string {
	if page, ok := req.Context().Value(pageKey{}).(string); ok && page != "" {
		return page
	}

	return req.URL.Path
}

func (g *Gate) exempt(path string) bool {
	for _, e := range g.exemptions {
		if strings.Contains(path, e) {
			return true
		}
	}

	return false
}

// RoundTripper wraps next so every request passes through the gate.
func (g *Gate) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return &transport{gate: g, next: next}
}

// Install routes client's requests through the gate and returns the function that removes
// it. Installing on a client that already has the gate only adds a reference, and the
// original transport is restored when the last reference is released. Each returned
// function may be called any number of times.
func (g *Gate) Install(client *http.Client) (uninstall func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	inst, ok := g.installs[client]
	if !ok {
		inst = &installation{original: client.Transport}
		client.Transport = g.RoundTripper(client.Transport)
		g.installs[client] = inst
	}
	inst.refs++

	var once sync.Once

	return func() {
		once.Do(func() { g.release(client) })
	}
}

// Installed reports if the gate is installed on client.
func (g *Gate) Installed(client *http.Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.installs[client]

	return ok
}

func (g *Gate) release(client *http.Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	inst, ok := g.installs[client]
	if !ok {
		return
	}
	inst.refs--
	if inst.refs > 0 {
		return
	}
	client.Transport = inst.original
	delete(g.installs, client)
}

type transport struct {
	gate *Gate
	next http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.gate.Check(req); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}

		return nil, err
	}

	return t.next.RoundTrip(req)
}
