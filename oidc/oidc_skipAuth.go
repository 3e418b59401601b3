//go:build skipAuth

// Package oidc implements a development stand in for OpenID Connect sign in. The identity is
// read from APP_USER_ID, APP_USER_NAME and APP_USER_EMAIL.
package oidc

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/accessgate/oidc/loader"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
)

const (
	defaultProviderName = "skipAuth"
	defaultLoginURL     = "/signin"
)

var _ Authenticator = &OIDC{}

// OIDC implements the Authenticator interface without contacting an identity provider.
type OIDC struct {
	cookies      cookie.Handler
	providerName string
	redirectURL  string
	loginURL     string
}

// New returns a new OIDC Authenticator
func New(cookies cookie.Handler, cfg loader.Config, _ ...loader.Option) *OIDC {
	return &OIDC{
		cookies:      cookies,
		providerName: defaultProviderName,
		redirectURL:  cfg.RedirectURL,
	}
}

// SetProviderName sets the provider name sent to the backend with each identity.
func (o *OIDC) SetProviderName(name string) {
	o.providerName = name
}

// SetLoginURL sets the URL to redirect to when sign in fails
func (o *OIDC) SetLoginURL(url string) {
	o.loginURL = url
}

// LoginURL returns the URL to redirect to when sign in fails
func (o *OIDC) LoginURL() string {
	if o.loginURL == "" {
		return defaultLoginURL
	}

	return o.loginURL
}

// AuthCodeURL redirects straight back to the callback.
func (o *OIDC) AuthCodeURL(_ context.Context, w http.ResponseWriter, returnURL string) (string, error) {
	cval := cookie.NewValues().Set(cookie.ReturnURL, SafeReturnURL(returnURL))
	if err := o.cookies.WriteOidcCookie(w, cval); err != nil {
		return "", errors.Wrap(err, "cookie.Handler.WriteOidcCookie()")
	}

	return o.redirectURL, nil
}

// Verify returns the identity configured in the environment.
func (o *OIDC) Verify(_ context.Context, w http.ResponseWriter, r *http.Request) (*sessioninfo.Identity, string, error) {
	cval, ok, err := o.cookies.ReadOidcCookie(r)
	if err != nil {
		return nil, "", errors.Wrap(err, "cookie.Handler.ReadOidcCookie()")
	}
	if !ok {
		return nil, "", errors.New("No OIDC cookie")
	}
	o.cookies.DeleteOidcCookie(w)

	token, err := uuid.NewV4()
	if err != nil {
		return nil, "", errors.Wrap(err, "uuid.NewV4()")
	}

	c := &claims{
		Subject: os.Getenv("APP_USER_ID"),
		Name:    os.Getenv("APP_USER_NAME"),
		Email:   os.Getenv("APP_USER_EMAIL"),
	}

	return c.identity(o.providerName, token.String(), token.String(), time.Now().Add(time.Hour)), SafeReturnURL(cval.Get(cookie.ReturnURL)), nil
}
