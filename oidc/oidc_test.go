//go:build !skipAuth

package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/accessgate/mock/mock_loader"
	"github.com/cccteam/httpio"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-playground/errors/v5"
	"go.uber.org/mock/gomock"
	"golang.org/x/oauth2"
)

const cookieKey = "Rsgb6WsDvBsMQ5IJr2WJjVLCPO+o9WW6SdVktdaaq9O0WFA0Hc/EmJeOwCGV6LIqG8ue3iSZ/lycpv8ZNKvWjWU42hZnlO15vYANZG89R1ncjmu4KStldFuP/r0RFhZa"

func newCookieClient(t *testing.T) *cookie.Client {
	t.Helper()

	sc, err := cookie.NewSecureCookie(cookieKey)
	if err != nil {
		t.Fatalf("NewSecureCookie() error = %v", err)
	}

	return cookie.NewClient(sc, cookie.WithSecure(false))
}

func TestOIDC_AuthCodeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		returnURL     string
		prepare       func(l *mock_loader.MockLoader, p *mock_loader.MockProvider)
		wantURL       string
		wantReturnURL string
		wantErr       bool
	}{
		{
			name:      "provider unavailable",
			returnURL: "/pocs/x",
			prepare: func(l *mock_loader.MockLoader, _ *mock_loader.MockProvider) {
				l.EXPECT().Provider(gomock.Any()).Return(nil, errors.New("discovery failed"))
			},
			wantErr: true,
		},
		{
			name:      "redirect to provider",
			returnURL: "/pocs/x",
			prepare: func(l *mock_loader.MockLoader, p *mock_loader.MockProvider) {
				l.EXPECT().Provider(gomock.Any()).Return(p, nil)
				p.EXPECT().AuthCodeURL(gomock.Any(), gomock.Any()).Return("https://idp.example.com/authorize?state=x")
			},
			wantURL:       "https://idp.example.com/authorize?state=x",
			wantReturnURL: "/pocs/x",
		},
		{
			name:      "offsite return url",
			returnURL: "//evil.example.com",
			prepare: func(l *mock_loader.MockLoader, p *mock_loader.MockProvider) {
				l.EXPECT().Provider(gomock.Any()).Return(p, nil)
				p.EXPECT().AuthCodeURL(gomock.Any(), gomock.Any()).Return("https://idp.example.com/authorize")
			},
			wantURL:       "https://idp.example.com/authorize",
			wantReturnURL: "/",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			l := mock_loader.NewMockLoader(ctrl)
			p := mock_loader.NewMockProvider(ctrl)
			tt.prepare(l, p)

			cookies := newCookieClient(t)
			o := &OIDC{cookies: cookies, providerName: defaultProviderName, Loader: l}

			w := httptest.NewRecorder()
			got, err := o.AuthCodeURL(context.Background(), w, tt.returnURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AuthCodeURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.wantURL {
				t.Errorf("AuthCodeURL() = %v, want %v", got, tt.wantURL)
			}

			r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			for _, c := range w.Result().Cookies() {
				r.AddCookie(c)
			}
			cval, found, err := cookies.ReadOidcCookie(r)
			if err != nil || !found {
				t.Fatalf("ReadOidcCookie() found = %v, err = %v", found, err)
			}
			if cval.Get(cookie.OIDCState) == "" || cval.Get(cookie.OIDCPkceVerifier) == "" {
				t.Errorf("flow cookie missing state or verifier: %v", cval)
			}
			if got := cval.Get(cookie.ReturnURL); got != tt.wantReturnURL {
				t.Errorf("returnURL = %q, want %q", got, tt.wantReturnURL)
			}
		})
	}
}

func TestOIDC_Verify(t *testing.T) {
	t.Parallel()

	const state = "4b0c6e46-6f1b-4e59-8a55-7a6b3b1c3f51"

	tests := []struct {
		name        string
		noCookie    bool
		query       url.Values
		prepare     func(l *mock_loader.MockLoader, p *mock_loader.MockProvider)
		wantMessage string
	}{
		{
			name:        "missing flow cookie",
			noCookie:    true,
			query:       url.Values{"state": {state}, "code": {"c"}},
			prepare:     func(*mock_loader.MockLoader, *mock_loader.MockProvider) {},
			wantMessage: "No OIDC cookie",
		},
		{
			name:        "state mismatch",
			query:       url.Values{"state": {"other"}, "code": {"c"}},
			prepare:     func(*mock_loader.MockLoader, *mock_loader.MockProvider) {},
			wantMessage: "Invalid 'state' parameter value",
		},
		{
			name:        "provider error",
			query:       url.Values{"state": {state}, "error": {"access_denied"}, "error_description": {"user cancelled"}},
			prepare:     func(*mock_loader.MockLoader, *mock_loader.MockProvider) {},
			wantMessage: "Sign in failed: access_denied user cancelled",
		},
		{
			name:  "code exchange fails",
			query: url.Values{"state": {state}, "code": {"c"}},
			prepare: func(l *mock_loader.MockLoader, p *mock_loader.MockProvider) {
				l.EXPECT().Provider(gomock.Any()).Return(p, nil)
				p.EXPECT().Exchange(gomock.Any(), "c", gomock.Any()).Return(nil, errors.New("bad code"))
			},
			wantMessage: "Failed to exchange token",
		},
		{
			name:  "no id token",
			query: url.Values{"state": {state}, "code": {"c"}},
			prepare: func(l *mock_loader.MockLoader, p *mock_loader.MockProvider) {
				l.EXPECT().Provider(gomock.Any()).Return(p, nil)
				p.EXPECT().Exchange(gomock.Any(), "c", gomock.Any()).Return(&oauth2.Token{AccessToken: "at"}, nil)
			},
			wantMessage: "No id_token in token response",
		},
		{
			name:  "id token rejected",
			query: url.Values{"state": {state}, "code": {"c"}},
			prepare: func(l *mock_loader.MockLoader, p *mock_loader.MockProvider) {
				l.EXPECT().Provider(gomock.Any()).Return(p, nil)
				p.EXPECT().Exchange(gomock.Any(), "c", gomock.Any()).Return((&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]any{"id_token": "raw"}), nil)
				p.EXPECT().Verify(gomock.Any(), "raw").Return(nil, errors.New("expired"))
			},
			wantMessage: "Failed to verify ID token",
		},
		{
			name:  "id token without claims",
			query: url.Values{"state": {state}, "code": {"c"}},
			prepare: func(l *mock_loader.MockLoader, p *mock_loader.MockProvider) {
				l.EXPECT().Provider(gomock.Any()).Return(p, nil)
				p.EXPECT().Exchange(gomock.Any(), "c", gomock.Any()).Return((&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]any{"id_token": "raw"}), nil)
				p.EXPECT().Verify(gomock.Any(), "raw").Return(&oidc.IDToken{}, nil)
			},
			wantMessage: "Failed to parse ID token claims",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			l := mock_loader.NewMockLoader(ctrl)
			p := mock_loader.NewMockProvider(ctrl)
			tt.prepare(l, p)

			cookies := newCookieClient(t)
			o := &OIDC{cookies: cookies, providerName: defaultProviderName, Loader: l}

			r := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+tt.query.Encode(), http.NoBody)
			if !tt.noCookie {
				w := httptest.NewRecorder()
				cval := cookie.NewValues().Set(cookie.OIDCState, state).Set(cookie.OIDCPkceVerifier, "verifier").Set(cookie.ReturnURL, "/pocs/x")
				if err := cookies.WriteOidcCookie(w, cval); err != nil {
					t.Fatalf("WriteOidcCookie() error = %v", err)
				}
				for _, c := range w.Result().Cookies() {
					r.AddCookie(c)
				}
			}

			identity, _, err := o.Verify(context.Background(), httptest.NewRecorder(), r)
			if err == nil {
				t.Fatalf("Verify() = %v, expected error", identity)
			}
			if got := httpio.Message(err); !strings.HasPrefix(got, tt.wantMessage) {
				t.Errorf("Verify() message = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}
