// Package lifecycle drives a user through sign in, the backend exchange, approval, refresh,
// expiry and sign out. Every write to the session store goes through a Manager.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/backend"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/accessgate/sessionstorage"
	"github.com/cccteam/accessgate/sessiontypes"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
)

const name = "github.com/cccteam/accessgate/lifecycle"

const (
	defaultSessionTimeout = 8 * time.Hour
	defaultLookahead      = time.Minute
)

// ErrClosed is returned by operations on a Manager after Close.
var ErrClosed = errors.New("lifecycle manager closed")

// Manager owns the session of one user.
type Manager struct {
	store     sessionstorage.Store
	exchanger backend.Exchanger

	now            func() time.Time
	sessionTimeout time.Duration
	lookahead      time.Duration
	metrics        *Metrics
	onStateChange  func(ctx context.Context, from, to State)

	scope  context.Context
	cancel context.CancelFunc

	// inflight is held by every operation that writes the store, so an exchange, a
	// refresh and a sign out never interleave.
	inflight sync.Locker

	mu        sync.Mutex
	state     State
	closed    bool
	watchCtx  context.Context
	stopWatch func() bool
	timer     *time.Timer
	gen       uint64
}

// New returns a Manager that keeps the session in store and exchanges identities with exchanger.
func New(store sessionstorage.Store, exchanger backend.Exchanger, opts ...Option) *Manager {
	m := &Manager{
		store:          store,
		exchanger:      exchanger,
		now:            time.Now,
		sessionTimeout: defaultSessionTimeout,
		lookahead:      defaultLookahead,
		inflight:       &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.scope, m.cancel = context.WithCancel(context.Background())

	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Current returns the stored session, or nil when signed out. A session within one lookahead
// of its expiry is signed out and reported as autherr.ErrSessionExpired. A rejected one as
// autherr.ErrRejected.
func (m *Manager) Current(ctx context.Context) (*sessioninfo.Session, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.Current()")
	defer span.End()

	sess, err := m.store.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "sessionstorage.Store.Get()")
	}

	if !sess.Authenticated() {
		m.settle(ctx, Unauthenticated)

		return nil, nil
	}

	if m.expired(sess.Info) {
		if err := m.SignOut(ctx); err != nil {
			return nil, errors.Wrap(err, "Manager.SignOut()")
		}

		return nil, autherr.ErrSessionExpired
	}

	if sess.Info.Status == sessiontypes.StatusRejected {
		if err := m.SignOut(ctx); err != nil {
			return nil, errors.Wrap(err, "Manager.SignOut()")
		}

		return nil, autherr.ErrRejected
	}

	m.settle(ctx, stateForStatus(sess.Info.Status))

	return sess, nil
}

// Route returns the surface the user may reach.
func (m *Manager) Route(ctx context.Context) (Surface, error) {
	if _, err := m.Current(ctx); err != nil {
		return SurfaceSignIn, errors.Wrap(err, "Manager.Current()")
	}

	return m.State().Surface(), nil
}

// BeginSignIn moves a signed out user to Authenticating. It reports false, and changes
// nothing, when a current session exists.
func (m *Manager) BeginSignIn(ctx context.Context) (bool, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.BeginSignIn()")
	defer span.End()

	sess, err := m.Current(ctx)
	if err != nil && !errors.Is(err, autherr.ErrSessionExpired) && !errors.Is(err, autherr.ErrRejected) {
		return false, errors.Wrap(err, "Manager.Current()")
	}
	if sess != nil {
		return false, nil
	}
	if m.isClosed() {
		return false, ErrClosed
	}

	m.setState(ctx, Authenticating)

	return true, nil
}

// CompleteSignIn exchanges the identity returned by the identity provider.
func (m *Manager) CompleteSignIn(ctx context.Context, identity *sessioninfo.Identity) (*sessioninfo.Session, error) {
	if identity == nil {
		return nil, errors.Wrap(autherr.ErrNotAuthenticated, "no identity")
	}

	sess, err := m.Exchange(ctx, identity)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Exchange()")
	}

	return sess, nil
}

// Exchange trades identity for a session and stores it. On failure the store is not
// modified.
func (m *Manager) Exchange(ctx context.Context, identity *sessioninfo.Identity) (*sessioninfo.Session, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.Exchange()")
	defer span.End()

	ctx, done := m.bind(ctx)
	defer done()

	m.inflight.Lock()
	defer m.inflight.Unlock()

	if m.isClosed() {
		return nil, ErrClosed
	}

	m.setState(ctx, Exchanging)

	grant, err := m.exchanger.Exchange(ctx, identity)
	m.metrics.exchange("signin", err)
	if err != nil {
		m.restoreState(ctx)

		return nil, errors.Wrap(err, "backend.Exchanger.Exchange()")
	}
	if m.isClosed() {
		return nil, ErrClosed
	}

	info := grant.Info.Clone()
	info.SessionExpiry = m.expiry(identity)

	if info.Status == sessiontypes.StatusRejected {
		if err := m.signOutLocked(ctx); err != nil {
			return nil, errors.Wrap(err, "Manager.signOutLocked()")
		}

		return nil, autherr.ErrRejected
	}

	id := *identity
	sess := &sessioninfo.Session{Info: info, Token: grant.Token, Identity: &id}
	if err := m.store.Set(ctx, sess); err != nil {
		m.restoreState(ctx)

		return nil, errors.Wrap(err, "sessionstorage.Store.Set()")
	}

	m.setState(ctx, stateForStatus(info.Status))
	m.rearm(info.SessionExpiry)

	return sess.Clone(), nil
}

// Refresh repeats the exchange with the cached identity to pick up changes made by an
// administrator. The session expiry is kept, so refreshing against an unchanged backend
// yields an identical record.
func (m *Manager) Refresh(ctx context.Context) (*sessioninfo.Session, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.Refresh()")
	defer span.End()

	ctx, done := m.bind(ctx)
	defer done()

	m.inflight.Lock()
	defer m.inflight.Unlock()

	if m.isClosed() {
		return nil, ErrClosed
	}

	// Another request may have signed out or refreshed since this one loaded the session.
	sess, err := m.store.Reload(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "sessionstorage.Store.Reload()")
	}
	if !sess.Authenticated() {
		m.setState(ctx, Unauthenticated)

		return nil, autherr.ErrNotAuthenticated
	}
	if m.expired(sess.Info) {
		if err := m.signOutLocked(ctx); err != nil {
			return nil, errors.Wrap(err, "Manager.signOutLocked()")
		}

		return nil, autherr.ErrSessionExpired
	}
	if sess.Identity == nil {
		return nil, errors.Wrap(autherr.ErrNotAuthenticated, "no cached identity")
	}

	grant, err := m.exchanger.Exchange(ctx, sess.Identity)
	m.metrics.exchange("refresh", err)
	if err != nil {
		if errors.Is(err, autherr.ErrUnauthorized) {
			if err := m.signOutLocked(ctx); err != nil {
				return nil, errors.Wrap(err, "Manager.signOutLocked()")
			}

			return nil, errors.Wrapf(autherr.ErrSessionExpired, "refresh: %v", err)
		}

		return nil, errors.Wrap(err, "backend.Exchanger.Exchange()")
	}
	if m.isClosed() {
		return nil, ErrClosed
	}

	info := grant.Info.Clone()
	info.SessionExpiry = sess.Info.SessionExpiry

	if info.Status == sessiontypes.StatusRejected {
		if err := m.signOutLocked(ctx); err != nil {
			return nil, errors.Wrap(err, "Manager.signOutLocked()")
		}

		return nil, autherr.ErrRejected
	}

	next := &sessioninfo.Session{Info: info, Token: grant.Token, Identity: sess.Identity}
	if err := m.store.Set(ctx, next); err != nil {
		return nil, errors.Wrap(err, "sessionstorage.Store.Set()")
	}

	m.setState(ctx, stateForStatus(info.Status))
	m.rearm(info.SessionExpiry)

	return next.Clone(), nil
}

// SignOut clears the record, the session token and the cached identity in one operation
// and stops the expiry watch.
func (m *Manager) SignOut(ctx context.Context) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.SignOut()")
	defer span.End()

	m.inflight.Lock()
	defer m.inflight.Unlock()

	if m.isClosed() {
		return ErrClosed
	}

	return m.signOutLocked(ctx)
}

func (m *Manager) signOutLocked(ctx context.Context) error {
	m.disarm()

	if err := m.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "sessionstorage.Store.Clear()")
	}
	m.setState(ctx, Unauthenticated)

	return nil
}

// Watch signs the user out one lookahead before the session expires. The watch is re-armed
// by every exchange and stops on SignOut, Close or when ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	sess, err := m.Current(ctx)
	if err != nil {
		return errors.Wrap(err, "Manager.Current()")
	}
	if sess == nil {
		return autherr.ErrNotAuthenticated
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.stopWatch != nil {
		m.stopWatch()
	}
	m.watchCtx = ctx
	m.stopWatch = context.AfterFunc(ctx, m.unwatch)
	m.armLocked(sess.Info.SessionExpiry)

	return nil
}

// Close stops the watch and cancels in flight exchanges. Results that arrive after Close
// are not stored.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.stopTimerLocked()
	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
	m.watchCtx = nil
	m.cancel()
}

func (m *Manager) unwatch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.watchCtx = nil
	m.stopTimerLocked()
}

func (m *Manager) rearm(expiry time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.armLocked(expiry)
}

func (m *Manager) disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
}

func (m *Manager) armLocked(expiry time.Time) {
	m.stopTimerLocked()
	if m.watchCtx == nil || m.closed || expiry.IsZero() {
		return
	}

	gen := m.gen
	ctx := context.WithoutCancel(m.watchCtx)
	d := max(expiry.Add(-m.lookahead).Sub(m.now()), 0)
	m.timer = time.AfterFunc(d, func() { m.expire(ctx, gen) })
}

// stopTimerLocked stops the timer and invalidates a callback that has already fired.
func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}

func (m *Manager) expire(ctx context.Context, gen uint64) {
	m.inflight.Lock()
	defer m.inflight.Unlock()

	m.mu.Lock()
	current := gen == m.gen && !m.closed
	m.mu.Unlock()
	if !current {
		return
	}

	logger.FromCtx(ctx).Infof("session expiry within %s, signing out", m.lookahead)
	if err := m.signOutLocked(ctx); err != nil {
		logger.FromCtx(ctx).Error(errors.Wrap(err, "Manager.signOutLocked()"))
	}
}

// bind returns a context that is also cancelled by Close.
func (m *Manager) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(m.scope, func() { cancel(ErrClosed) })

	return ctx, func() {
		stop()
		cancel(nil)
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

func (m *Manager) setState(ctx context.Context, to State) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()

	if from == to {
		return
	}
	m.metrics.transition(from, to)
	if m.onStateChange != nil {
		m.onStateChange(ctx, from, to)
	}
}

// settle records the state implied by the store unless a sign in is under way.
func (m *Manager) settle(ctx context.Context, to State) {
	switch m.State() {
	case Authenticating, Exchanging:
		if to == Unauthenticated {
			return
		}
	}
	m.setState(ctx, to)
}

// restoreState returns to the state implied by the store after a failed exchange.
func (m *Manager) restoreState(ctx context.Context) {
	sess, err := m.store.Get(ctx)
	if err == nil && sess.Authenticated() && !m.expired(sess.Info) {
		m.setState(ctx, stateForStatus(sess.Info.Status))

		return
	}
	m.setState(ctx, Unauthenticated)
}

// expired reports if info is within one lookahead of its expiry.
func (m *Manager) expired(info *sessioninfo.SessionInfo) bool {
	return info.Expired(m.now().Add(m.lookahead))
}

// expiry is the session timeout from now, capped by the identity token expiry.
func (m *Manager) expiry(identity *sessioninfo.Identity) time.Time {
	exp := m.now().Add(m.sessionTimeout)
	if identity != nil && !identity.Expiry.IsZero() && identity.Expiry.Before(exp) {
		return identity.Expiry
	}

	return exp
}
