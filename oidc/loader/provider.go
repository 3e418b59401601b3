package loader

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-playground/errors/v5"
	"golang.org/x/oauth2"
)

var _ Provider = (*provider)(nil)

type provider struct {
	provider *oidc.Provider
	config   oauth2.Config
	timeout  time.Duration
}

// AuthCodeURL returns the provider URL that starts the authorization code flow.
func (p *provider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.config.AuthCodeURL(state, opts...)
}

// Exchange trades the authorization code for tokens.
func (p *provider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	expire, cancel := context.WithTimeoutCause(ctx, p.timeout, errors.New("oauth2.Config.Exchange() timeout"))
	defer cancel()

	t, err := p.config.Exchange(expire, code, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "oauth2.Config.Exchange()")
	}

	return t, nil
}

// Verify checks the signature, issuer, audience and expiry of an ID token.
func (p *provider) Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	expire, cancel := context.WithTimeoutCause(ctx, p.timeout, errors.New("oidc.IDTokenVerifier.Verify() timeout"))
	defer cancel()

	token, err := p.provider.Verifier(&oidc.Config{ClientID: p.config.ClientID}).Verify(expire, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "oidc.IDTokenVerifier.Verify()")
	}

	return token, nil
}
