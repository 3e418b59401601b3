package oidc

import (
	"strings"
	"time"

	"github.com/cccteam/accessgate/sessioninfo"
)

// claims are the ID token claims used to build the user profile.
type claims struct {
	Subject           string `json:"sub"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
}

func (c *claims) identity(provider, rawIDToken, accessToken string, expiry time.Time) *sessioninfo.Identity {
	p := sessioninfo.Profile{
		ID:    c.Subject,
		Name:  c.Name,
		Email: c.Email,
		Image: c.Picture,
	}
	if p.Email == "" && strings.Contains(c.PreferredUsername, "@") {
		p.Email = c.PreferredUsername
	}
	if p.Name == "" {
		p.Name = c.PreferredUsername
	}

	return &sessioninfo.Identity{
		Provider:    provider,
		IDToken:     rawIDToken,
		AccessToken: accessToken,
		Profile:     p,
		Expiry:      expiry,
	}
}

// SafeReturnURL returns u when it is a path on this site and "/" otherwise.
func SafeReturnURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || !strings.HasPrefix(u, "/") || strings.HasPrefix(u, "//") || strings.HasPrefix(u, "/\\") {
		return "/"
	}

	return u
}
