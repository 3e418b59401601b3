package accessgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cccteam/accessgate/access"
	"github.com/cccteam/accessgate/backend"
	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/accessgate/sessionstorage"
	"github.com/cccteam/accessgate/sessiontypes"
	"go.uber.org/mock/gomock"
)

func TestPortal_SignIn_LargeTokens(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	b := h.browser(t)

	id := identity()
	id.IDToken = strings.Repeat("i", 1200)
	id.AccessToken = strings.Repeat("a", 1200)
	g := grant(sessiontypes.StatusApproved, sessiontypes.RoleDeveloper, "", nil)
	g.Token = strings.Repeat("s", 900)

	h.auth.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(id, "/pocs/x", nil)
	h.exchanger.EXPECT().Exchange(gomock.Any(), id).Return(g, nil)
	if rr := b.do(http.MethodGet, "/api/auth/callback?code=c&state=s", nil); rr.Code != http.StatusFound || rr.Header().Get("Location") != "/pocs/x" {
		t.Fatalf("callback = %d %q, body = %s", rr.Code, rr.Header().Get("Location"), rr.Body)
	}

	if got := b.status(); !got.Authenticated || got.Status != sessiontypes.StatusApproved {
		t.Fatalf("status after sign in = %+v", got)
	}

	// Refresh exchanges the identity read back from the cookies.
	h.exchanger.EXPECT().Exchange(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got *sessioninfo.Identity) (*backend.Grant, error) {
		if got.IDToken != id.IDToken || got.AccessToken != id.AccessToken {
			t.Errorf("refresh exchanged identity with tokens of %d and %d bytes", len(got.IDToken), len(got.AccessToken))
		}

		return g, nil
	})
	if rr := b.do(http.MethodPost, "/api/auth/refresh", nil); rr.Code != http.StatusOK {
		t.Errorf("refresh code = %d, body = %s", rr.Code, rr.Body)
	}
}

func TestPortal_SessionExpiresWithinLookahead(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithSessionTimeout(time.Hour))
	b := h.browser(t)
	h.signIn(b, grant(sessiontypes.StatusApproved, sessiontypes.RoleDeveloper, "", nil))

	h.clock.Advance(58 * time.Minute)
	if got := b.status(); !got.Authenticated {
		t.Fatalf("status two minutes before expiry = %+v", got)
	}

	h.clock.Advance(90 * time.Second)
	if got := b.status(); got.Authenticated || got.Reason != access.ReasonNotSignedIn {
		t.Errorf("status 30s before expiry = %+v", got)
	}
}

func TestPortal_SignOut_DuringRefresh(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithMirror(sessionstorage.NewMemory()))
	b := h.browser(t)
	h.signIn(b, grant(sessiontypes.StatusPending, sessiontypes.RoleDeveloper, "", nil))

	started := make(chan struct{})
	release := make(chan struct{})
	h.exchanger.EXPECT().Exchange(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, *sessioninfo.Identity) (*backend.Grant, error) {
		close(started)
		<-release

		return grant(sessiontypes.StatusApproved, sessiontypes.RoleDeveloper, "", nil), nil
	})

	serve := func(req *http.Request) <-chan int {
		code := make(chan int, 1)
		go func() {
			rr := httptest.NewRecorder()
			h.handler.ServeHTTP(rr, req)
			code <- rr.Code
		}()

		return code
	}

	refreshed := serve(b.request(http.MethodPost, "/api/auth/refresh", nil))
	<-started
	signedOut := serve(b.request(http.MethodPost, "/api/auth/signout", nil))

	select {
	case code := <-signedOut:
		t.Fatalf("signout finished during refresh with %d", code)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if code := <-refreshed; code != http.StatusOK {
		t.Errorf("refresh code = %d", code)
	}
	if code := <-signedOut; code != http.StatusOK {
		t.Errorf("signout code = %d", code)
	}

	if got := b.status(); got.Authenticated {
		t.Errorf("status after sign out = %+v", got)
	}
}

func TestPortal_SignOut_IgnoresLateMirror(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	b := h.browser(t)
	h.signIn(b, grant(sessiontypes.StatusApproved, sessiontypes.RoleDeveloper, "", nil))

	// Cookies of a refresh response that reaches the browser after the sign out.
	stale := *b.cookies[cookie.MirrorCookieName]

	if rr := b.do(http.MethodPost, "/api/auth/signout", nil); rr.Code != http.StatusOK {
		t.Fatalf("signout code = %d", rr.Code)
	}
	b.cookies[stale.Name] = &stale

	if got := b.status(); got.Authenticated {
		t.Errorf("status with a mirror from before sign out = %+v", got)
	}
}
