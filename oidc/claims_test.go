package oidc

import (
	"testing"
	"time"

	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/google/go-cmp/cmp"
)

func TestClaims_Identity(t *testing.T) {
	t.Parallel()

	exp := time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		claims claims
		want   sessioninfo.Profile
	}{
		{
			name:   "full profile",
			claims: claims{Subject: "sub", Name: "User One", Email: "u1@example.com", Picture: "https://example.com/u1.png"},
			want:   sessioninfo.Profile{ID: "sub", Name: "User One", Email: "u1@example.com", Image: "https://example.com/u1.png"},
		},
		{
			name:   "preferred username fills blanks",
			claims: claims{Subject: "sub", PreferredUsername: "u1@example.com"},
			want:   sessioninfo.Profile{ID: "sub", Name: "u1@example.com", Email: "u1@example.com"},
		},
		{
			name:   "username that is not an email",
			claims: claims{Subject: "sub", PreferredUsername: "u1"},
			want:   sessioninfo.Profile{ID: "sub", Name: "u1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.claims.identity("oidc", "raw", "at", exp)
			want := &sessioninfo.Identity{Provider: "oidc", IDToken: "raw", AccessToken: "at", Profile: tt.want, Expiry: exp}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("identity() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSafeReturnURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                     "/",
		"/pocs/x?tab=1":        "/pocs/x?tab=1",
		"https://evil.example": "/",
		"//evil.example":       "/",
		"/\\evil.example":      "/",
		"  /pending ":          "/pending",
	}
	for in, want := range tests {
		if got := SafeReturnURL(in); got != want {
			t.Errorf("SafeReturnURL(%q) = %q, want %q", in, got, want)
		}
	}
}
