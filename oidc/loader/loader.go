// Package loader discovers the OIDC provider lazily so the server can start while the
// identity provider is unreachable.
package loader

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-playground/errors/v5"
	"golang.org/x/oauth2"
)

const (
	defaultLoginURL = "/signin"
	defaultTimeout  = 5 * time.Second
)

var _ Loader = (*loader)(nil)

// Config identifies the client registration at the identity provider.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scopes requested in addition to openid. (default: profile, email)
	Scopes []string
}

type loader struct {
	cfg      Config
	timeout  time.Duration
	loginURL string

	mu       sync.RWMutex
	provider *provider
}

// Option configures the loader.
type Option func(*loader)

// WithTimeout bounds each call to the identity provider. (default: 5s)
func WithTimeout(d time.Duration) Option {
	return func(l *loader) {
		l.timeout = d
	}
}

// New returns a Loader for cfg. Discovery happens on the first call to Provider.
func New(cfg Config, opts ...Option) Loader {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"profile", "email"}
	}

	l := &loader{
		cfg:     cfg,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Provider returns the discovered provider, running discovery if it has not succeeded yet.
func (l *loader) Provider(ctx context.Context) (Provider, error) {
	l.mu.RLock()
	if l.provider != nil {
		l.mu.RUnlock()

		return l.provider, nil
	}

	l.mu.RUnlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.provider != nil {
		return l.provider, nil
	}

	if err := l.discover(ctx); err != nil {
		return nil, errors.Wrap(err, "loader.discover()")
	}

	return l.provider, nil
}

// SetLoginURL sets the URL to redirect to when sign in fails.
func (l *loader) SetLoginURL(url string) {
	l.loginURL = url
}

// LoginURL returns the URL to redirect to when sign in fails.
func (l *loader) LoginURL() string {
	if l.loginURL == "" {
		return defaultLoginURL
	}

	return l.loginURL
}

func (l *loader) discover(ctx context.Context) error {
	expire, cancel := context.WithTimeoutCause(ctx, l.timeout, errors.New("oidc.NewProvider() timeout"))
	defer cancel()

	p, err := oidc.NewProvider(expire, l.cfg.IssuerURL)
	if err != nil {
		return errors.Wrap(err, "oidc.NewProvider()")
	}

	l.provider = &provider{
		provider: p,
		timeout:  l.timeout,
		config: oauth2.Config{
			ClientID:     l.cfg.ClientID,
			ClientSecret: l.cfg.ClientSecret,
			RedirectURL:  l.cfg.RedirectURL,
			Endpoint:     p.Endpoint(),
			Scopes:       append([]string{oidc.ScopeOpenID}, l.cfg.Scopes...),
		},
	}

	return nil
}
