//go:build !skipAuth

// Package oidc implements sign in through an OpenID Connect provider using the authorization
// code flow with PKCE (Proof Key for Code Exchange).
package oidc

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/accessgate/oidc/loader"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/ccc"
	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
	"golang.org/x/oauth2"
)

const defaultProviderName = "oidc"

var _ Authenticator = &OIDC{}

// OIDC implements the Authenticator interface for OpenID Connect authentication.
type OIDC struct {
	cookies      cookie.Handler
	providerName string
	loader.Loader
}

// New returns a new OIDC Authenticator
func New(cookies cookie.Handler, cfg loader.Config, opts ...loader.Option) *OIDC {
	return &OIDC{
		cookies:      cookies,
		providerName: defaultProviderName,
		Loader:       loader.New(cfg, opts...),
	}
}

// SetProviderName sets the provider name sent to the backend with each identity.
func (o *OIDC) SetProviderName(name string) {
	o.providerName = name
}

// AuthCodeURL returns the URL to redirect to in order to initiate the OIDC authentication process
func (o *OIDC) AuthCodeURL(ctx context.Context, w http.ResponseWriter, returnURL string) (string, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	provider, err := o.Provider(ctx)
	if err != nil {
		return "", errors.Wrap(err, "loader.Loader.Provider()")
	}

	pkceVerifier := oauth2.GenerateVerifier()

	state, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "uuid.NewV4()")
	}

	cval := cookie.NewValues().
		Set(cookie.OIDCState, state.String()).
		Set(cookie.OIDCPkceVerifier, pkceVerifier).
		Set(cookie.ReturnURL, SafeReturnURL(returnURL))

	if err := o.cookies.WriteOidcCookie(w, cval); err != nil {
		return "", errors.Wrap(err, "cookie.Handler.WriteOidcCookie()")
	}

	return provider.AuthCodeURL(state.String(), oauth2.S256ChallengeOption(pkceVerifier)), nil
}

// Verify validates the callback request, exchanges the code and verifies the ID token.
func (o *OIDC) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) (*sessioninfo.Identity, string, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	cval, ok, err := o.cookies.ReadOidcCookie(r)
	if err != nil {
		return nil, "", httpio.NewForbiddenMessage("Invalid OIDC cookie")
	}
	if !ok {
		return nil, "", httpio.NewForbiddenMessage("No OIDC cookie")
	}
	o.cookies.DeleteOidcCookie(w)

	returnURL := SafeReturnURL(cval.Get(cookie.ReturnURL))

	query := r.URL.Query()
	if e := query.Get("error"); e != "" {
		return nil, "", httpio.NewUnauthorizedMessage(strings.TrimSpace(fmt.Sprintf("Sign in failed: %s %s", e, query.Get("error_description"))))
	}

	if query.Get("state") != cval.Get(cookie.OIDCState) {
		return nil, "", httpio.NewForbiddenMessage("Invalid 'state' parameter value")
	}

	provider, err := o.Provider(ctx)
	if err != nil {
		return nil, "", errors.Wrap(err, "loader.Loader.Provider()")
	}

	oauth2Token, err := provider.Exchange(ctx, query.Get("code"), oauth2.VerifierOption(cval.Get(cookie.OIDCPkceVerifier)))
	if err != nil {
		return nil, "", httpio.NewInternalServerErrorMessageWithError(err, "Failed to exchange token")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, "", httpio.NewInternalServerErrorMessage("No id_token in token response")
	}

	idToken, err := provider.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, "", httpio.NewUnauthorizedMessageWithError(err, "Failed to verify ID token")
	}

	var c claims
	if err := idToken.Claims(&c); err != nil {
		return nil, "", httpio.NewInternalServerErrorMessageWithError(err, "Failed to parse ID token claims")
	}

	return c.identity(o.providerName, rawIDToken, oauth2Token.AccessToken, idToken.Expiry), returnURL, nil
}
