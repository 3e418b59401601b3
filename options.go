package accessgate

import (
	"net/http"
	"net/url"
	"time"

	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/accessgate/oidc"
	"github.com/cccteam/accessgate/sessionstorage"
	"github.com/cccteam/accessgate/timewindow"
	"github.com/prometheus/client_golang/prometheus"
)

// Option defines the interface for functional options used when creating a new Portal.
type Option interface {
	isPortalOption()
}

// CookieOption defines a function signature for setting cookie client options.
type CookieOption func(*cookie.Client)

func (CookieOption) isPortalOption() {}

// WithCookieName sets the name of the cookie holding the session ID. (default: auth)
func WithCookieName(name string) CookieOption {
	return CookieOption(cookie.WithCookieName(name))
}

// WithMirrorCookieName sets the name of the cookie holding the session when it is mirrored
// client side. (default: vm_session)
func WithMirrorCookieName(name string) CookieOption {
	return CookieOption(cookie.WithMirrorCookieName(name))
}

// WithCookieDomain sets the domain of the cookies.
func WithCookieDomain(domain string) CookieOption {
	return CookieOption(cookie.WithCookieDomain(domain))
}

// WithSecureCookies sets the Secure attribute of the cookies. (default: true)
func WithSecureCookies(secure bool) CookieOption {
	return CookieOption(cookie.WithSecure(secure))
}

// OIDCOption defines a function signature for setting OIDC options.
type OIDCOption func(*oidc.OIDC)

func (OIDCOption) isPortalOption() {}

// WithLoginURL sets the sign in page of the SPA. (default: /signin)
func WithLoginURL(l string) OIDCOption {
	return OIDCOption(func(o *oidc.OIDC) {
		o.SetLoginURL(l)
	})
}

// WithProviderName sets the provider name reported to the backend. (default: oidc)
func WithProviderName(name string) OIDCOption {
	return OIDCOption(func(o *oidc.OIDC) {
		o.SetProviderName(name)
	})
}

// PortalOption defines a function signature for setting Portal options.
type PortalOption func(*Portal)

func (PortalOption) isPortalOption() {}

// WithLogHandler sets the LogHandler. (default: httpio.Log)
func WithLogHandler(l LogHandler) PortalOption {
	return PortalOption(func(p *Portal) {
		p.handle = l
	})
}

// WithMirror keeps sessions in server side storage keyed by the session cookie instead of
// in an encrypted client side cookie.
func WithMirror(m sessionstorage.Mirror) PortalOption {
	return PortalOption(func(p *Portal) {
		p.mirror = m
	})
}

// WithSessionTimeout sets how long a session lasts after sign in. (default: 8h)
func WithSessionTimeout(d time.Duration) PortalOption {
	return PortalOption(func(p *Portal) {
		p.sessionTimeout = d
	})
}

// WithClock sets the time source.
func WithClock(now func() time.Time) PortalOption {
	return PortalOption(func(p *Portal) {
		p.now = now
	})
}

// WithMetrics registers the gate and lifecycle metrics with registry.
func WithMetrics(registry prometheus.Registerer) PortalOption {
	return PortalOption(func(p *Portal) {
		p.registry = registry
	})
}

// WithPresenter sets the location administrators enter and read window bounds in. (default: UTC)
func WithPresenter(presenter *timewindow.Presenter) PortalOption {
	return PortalOption(func(p *Portal) {
		p.presenter = presenter
	})
}

// WithPendingURL sets the page users awaiting approval are sent to. (default: /pending)
func WithPendingURL(u string) PortalOption {
	return PortalOption(func(p *Portal) {
		p.pendingURL = u
	})
}

// WithHomeURL sets the page users are sent to after signing in or out. (default: /)
func WithHomeURL(u string) PortalOption {
	return PortalOption(func(p *Portal) {
		p.homeURL = u
	})
}

// WithService registers a demo microservice. Requests to /pocs/{name}/api/* are forwarded to target.
func WithService(name string, target *url.URL) PortalOption {
	return PortalOption(func(p *Portal) {
		p.services[name] = target
	})
}

// WithTransport sets the transport used to reach the demo microservices. (default: http.DefaultTransport)
func WithTransport(rt http.RoundTripper) PortalOption {
	return PortalOption(func(p *Portal) {
		p.transport = rt
	})
}

// WithXSRFProtection makes Routes require an XSRF token on state changing requests.
func WithXSRFProtection() PortalOption {
	return PortalOption(func(p *Portal) {
		p.xsrf = true
	})
}
