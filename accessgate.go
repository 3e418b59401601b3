// Package accessgate is the backend-for-frontend of the demo portal. It signs users in through
// an OpenID Connect provider, exchanges their identity with the backend service, keeps the
// resulting session, and forwards demo calls to the AI microservices through the request gate.
package accessgate

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/cccteam/accessgate/access"
	"github.com/cccteam/accessgate/admin"
	"github.com/cccteam/accessgate/backend"
	"github.com/cccteam/accessgate/gate"
	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/accessgate/lifecycle"
	"github.com/cccteam/accessgate/oidc"
	"github.com/cccteam/accessgate/oidc/loader"
	"github.com/cccteam/accessgate/sessionstorage"
	"github.com/cccteam/accessgate/timewindow"
	"github.com/cccteam/ccc"
	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const name = "github.com/cccteam/accessgate"

const (
	defaultPendingURL = "/pending"
	defaultHomeURL    = "/"
)

// ctxKey is a type for storing values in the request context
type ctxKey string

const (
	ctxSessionID ctxKey = "sessionID"
	ctxLifecycle ctxKey = "lifecycle"
)

// LogHandler defines the handler signature required for handling logs.
type LogHandler func(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc

// Backend is the backend authentication and authorization service.
type Backend interface {
	backend.Exchanger
	backend.AdminAPI
}

var _ Handlers = (*Portal)(nil)

// Portal implements the portal HTTP surface.
type Portal struct {
	oidc      oidc.Authenticator
	exchanger backend.Exchanger
	adminAPI  backend.AdminAPI
	admin     admin.Administrator
	cookies   cookie.Handler
	mirror    sessionstorage.Mirror
	locks     *lifecycle.Locks
	gate      *gate.Gate
	proxyGate *gate.Gate
	handle    LogHandler

	now            func() time.Time
	sessionTimeout time.Duration
	registry       prometheus.Registerer
	lcMetrics      *lifecycle.Metrics
	presenter      *timewindow.Presenter
	pendingURL     string
	homeURL        string
	transport      http.RoundTripper
	xsrf           bool
	services       map[string]*url.URL
	proxies        map[string]*httputil.ReverseProxy
}

// New creates a Portal.
// cookieKey: A Base64-encoded string representing at least 64 bytes
// of cryptographically secure random data.
func New(
	be Backend, cookieKey string,
	issuerURL, clientID, clientSecret, redirectURL string,
	options ...Option,
) (*Portal, error) {
	var cookieOpts []cookie.Option
	for _, opt := range options {
		if o, ok := opt.(CookieOption); ok {
			cookieOpts = append(cookieOpts, cookie.Option(o))
		}
	}

	secureCookie, err := cookie.NewSecureCookie(cookieKey)
	if err != nil {
		return nil, errors.Wrap(err, "cookie.NewSecureCookie()")
	}
	cookies := cookie.NewClient(secureCookie, cookieOpts...)

	authenticator := oidc.New(cookies, loader.Config{
		IssuerURL:    issuerURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
	})
	for _, opt := range options {
		if o, ok := opt.(OIDCOption); ok {
			o(authenticator)
		}
	}

	return newPortal(authenticator, be, cookies, options...), nil
}

func newPortal(authenticator oidc.Authenticator, be Backend, cookies cookie.Handler, options ...Option) *Portal {
	p := &Portal{
		oidc:       authenticator,
		exchanger:  be,
		adminAPI:   be,
		cookies:    cookies,
		locks:      &lifecycle.Locks{},
		handle:     httpio.Log,
		now:        time.Now,
		presenter:  timewindow.NewPresenterIn(time.UTC, time.Now),
		pendingURL: defaultPendingURL,
		homeURL:    defaultHomeURL,
		services:   make(map[string]*url.URL),
	}
	for _, opt := range options {
		if o, ok := opt.(PortalOption); ok {
			o(p)
		}
	}

	var gateOpts []gate.Option
	if p.registry != nil {
		gateOpts = append(gateOpts, gate.WithMetrics(gate.NewMetrics(p.registry)))
		p.lcMetrics = lifecycle.NewMetrics(p.registry)
	}
	engine := access.NewEngine(access.ContextReader{}, access.WithClock(p.now))
	p.gate = gate.New(engine, gateOpts...)
	// Demo services never serve the portal's auth routes, so nothing they expose is exempt.
	p.proxyGate = gate.New(engine, append(gateOpts, gate.WithExemptions())...)
	p.admin = admin.New(p.adminAPI, admin.WithPresenter(p.presenter), admin.WithSignOut(signOutFromCtx))
	p.proxies = make(map[string]*httputil.ReverseProxy, len(p.services))
	for name, target := range p.services {
		p.proxies[name] = p.newProxy(target)
	}

	return p
}

// Gate returns the request gate, for installing on other outbound clients.
func (p *Portal) Gate() *gate.Gate {
	return p.gate
}

// lifecycleOptions are the options of every per request lifecycle manager.
func (p *Portal) lifecycleOptions() []lifecycle.Option {
	opts := []lifecycle.Option{
		lifecycle.WithClock(p.now),
		lifecycle.WithStateChange(logStateChange),
	}
	if p.sessionTimeout > 0 {
		opts = append(opts, lifecycle.WithSessionTimeout(p.sessionTimeout))
	}
	if p.lcMetrics != nil {
		opts = append(opts, lifecycle.WithMetrics(p.lcMetrics))
	}

	return opts
}

func sessionIDFromRequest(r *http.Request) (ccc.UUID, bool) {
	id, ok := r.Context().Value(ctxSessionID).(ccc.UUID)

	return id, ok
}

func lifecycleFromCtx(ctx context.Context) (lifecycle.Lifecycle, bool) {
	lc, ok := ctx.Value(ctxLifecycle).(lifecycle.Lifecycle)

	return lc, ok
}

func signOutFromCtx(ctx context.Context) error {
	lc, ok := lifecycleFromCtx(ctx)
	if !ok {
		return nil
	}
	if err := lc.SignOut(ctx); err != nil {
		return errors.Wrap(err, "lifecycle.Lifecycle.SignOut()")
	}

	return nil
}
