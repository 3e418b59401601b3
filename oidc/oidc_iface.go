package oidc

import (
	"context"
	"net/http"

	"github.com/cccteam/accessgate/sessioninfo"
)

// Authenticator signs users in with an OpenID Connect provider.
type Authenticator interface {
	// AuthCodeURL returns the URL to redirect to in order to start sign in. The flow state is
	// stored in a cookie written to w.
	AuthCodeURL(ctx context.Context, w http.ResponseWriter, returnURL string) (string, error)

	// Verify completes the callback request and returns the verified identity together with
	// the URL to return to.
	Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) (identity *sessioninfo.Identity, returnURL string, err error)

	// LoginURL returns the URL to redirect to when sign in fails
	LoginURL() string
	SetLoginURL(url string)
}
