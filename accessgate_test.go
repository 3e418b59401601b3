package accessgate

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cccteam/accessgate/access"
	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/backend"
	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/accessgate/lifecycle"
	"github.com/cccteam/accessgate/mock/mock_backend"
	"github.com/cccteam/accessgate/mock/mock_oidc"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/accessgate/sessionstorage"
	"github.com/cccteam/accessgate/sessiontypes"
	"github.com/cccteam/httpio"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/mock/gomock"
)

const cookieKey = "Rsgb6WsDvBsMQ5IJr2WJjVLCPO+o9WW6SdVktdaaq9O0WFA0Hc/EmJeOwCGV6LIqG8ue3iSZ/lycpv8ZNKvWjWU42hZnlO15vYANZG89R1ncjmu4KStldFuP/r0RFhZa"

var noon = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type mockBackend struct {
	*mock_backend.MockExchanger
	*mock_backend.MockAdminAPI
}

type harness struct {
	portal    *Portal
	auth      *mock_oidc.MockAuthenticator
	exchanger *mock_backend.MockExchanger
	adminAPI  *mock_backend.MockAdminAPI
	clock     *testClock
	handler   http.Handler
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	h := &harness{
		auth:      mock_oidc.NewMockAuthenticator(ctrl),
		exchanger: mock_backend.NewMockExchanger(ctrl),
		adminAPI:  mock_backend.NewMockAdminAPI(ctrl),
		clock:     &testClock{now: noon},
	}
	h.auth.EXPECT().LoginURL().Return("/signin").AnyTimes()

	sc, err := cookie.NewSecureCookie(cookieKey)
	if err != nil {
		t.Fatalf("NewSecureCookie() error = %v", err)
	}
	opts = append([]Option{WithClock(h.clock.Now)}, opts...)
	h.portal = newPortal(h.auth, mockBackend{h.exchanger, h.adminAPI}, cookie.NewClient(sc, cookie.WithSecure(false)), opts...)
	h.handler = h.portal.Routes()

	return h
}

// browser carries cookies between requests.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	header  http.Header
}

func (h *harness) browser(t *testing.T) *browser {
	return &browser{t: t, handler: h.handler, cookies: make(map[string]*http.Cookie)}
}

// request returns a request carrying the browser's cookies and headers.
func (b *browser) request(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	for k, vs := range b.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	return req
}

func (b *browser) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	b.t.Helper()

	rr := httptest.NewRecorder()
	b.handler.ServeHTTP(rr, b.request(method, target, body))

	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)

			continue
		}
		b.cookies[c.Name] = c
	}

	return rr
}

func (b *browser) status() statusResponse {
	b.t.Helper()

	rr := b.do(http.MethodGet, "/api/auth/session", nil)
	if rr.Code != http.StatusOK {
		b.t.Fatalf("GET /api/auth/session code = %d, body = %s", rr.Code, rr.Body)
	}
	var res statusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		b.t.Fatalf("json.Unmarshal() error = %v", err)
	}

	return res
}

func identity() *sessioninfo.Identity {
	return &sessioninfo.Identity{
		Provider:    "oidc",
		IDToken:     "id-token",
		AccessToken: "access-token",
		Profile:     sessioninfo.Profile{ID: "sub", Name: "User One", Email: "u1@example.com"},
	}
}

func grant(status sessiontypes.Status, role sessiontypes.Role, level sessiontypes.AccessLevel, pages sessiontypes.PageAccess) *backend.Grant {
	return &backend.Grant{
		Token: "session-token",
		Info: &sessioninfo.SessionInfo{
			UserID:      "u1",
			Email:       "u1@example.com",
			Name:        "User One",
			Status:      status,
			Role:        role,
			AccessLevel: level,
			PageAccess:  pages,
		},
	}
}

// signIn completes the callback with g as the backend's answer.
func (h *harness) signIn(b *browser, g *backend.Grant) *httptest.ResponseRecorder {
	b.t.Helper()

	h.auth.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(identity(), "/pocs/x", nil)
	h.exchanger.EXPECT().Exchange(gomock.Any(), identity()).Return(g, nil)

	return b.do(http.MethodGet, "/api/auth/callback?code=c&state=s", nil)
}

func message(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var got httpio.MessageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body = %s", err, rr.Body)
	}

	return got.Message
}

func TestPortal_SignIn_PendingThenApproved(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	b := h.browser(t)

	if got := b.status(); got.Authenticated || got.Surface != lifecycle.SurfaceSignIn {
		t.Fatalf("status before sign in = %+v", got)
	}

	h.auth.EXPECT().AuthCodeURL(gomock.Any(), gomock.Any(), "/pocs/x").Return("https://idp.example.com/authorize?state=s", nil)
	rr := b.do(http.MethodGet, "/api/auth/signin?returnUrl=/pocs/x", nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "https://idp.example.com/authorize?state=s" {
		t.Fatalf("signin = %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = h.signIn(b, grant(sessiontypes.StatusPending, sessiontypes.RoleViewer, sessiontypes.AccessViewOnly, nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != defaultPendingURL {
		t.Fatalf("callback = %d %q, want redirect to %s", rr.Code, rr.Header().Get("Location"), defaultPendingURL)
	}

	got := b.status()
	want := statusResponse{
		Authenticated: true,
		State:         lifecycle.PendingApproval.String(),
		Surface:       lifecycle.SurfacePending,
		User:          &userResponse{ID: "u1", Email: "u1@example.com", Name: "User One", Role: sessiontypes.RoleViewer},
		Status:        sessiontypes.StatusPending,
		AccessLevel:   sessiontypes.AccessViewOnly,
		Reason:        access.ReasonNotApproved,
	}
	if diff := cmp.Diff(want, got, cmpIgnoreExpiry); diff != "" {
		t.Errorf("status while pending mismatch (-want +got):\n%s", diff)
	}
	if got.SessionExpiry == nil || !got.SessionExpiry.Equal(noon.Add(8*time.Hour)) {
		t.Errorf("sessionExpiry = %v, want %v", got.SessionExpiry, noon.Add(8*time.Hour))
	}

	if rr := b.do(http.MethodGet, "/pocs/x/api/run", nil); rr.Code != http.StatusForbidden {
		t.Errorf("demo call while pending code = %d, want %d", rr.Code, http.StatusForbidden)
	}

	h.exchanger.EXPECT().Exchange(gomock.Any(), gomock.Any()).Return(grant(sessiontypes.StatusApproved, sessiontypes.RoleViewer, sessiontypes.AccessViewOnly, nil), nil)
	rr = b.do(http.MethodPost, "/api/auth/refresh", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh code = %d, body = %s", rr.Code, rr.Body)
	}

	got = b.status()
	if got.Surface != lifecycle.SurfaceContent || !got.AccessAllowed || got.Status != sessiontypes.StatusApproved {
		t.Errorf("status after approval = %+v", got)
	}
	if !got.SessionExpiry.Equal(noon.Add(8 * time.Hour)) {
		t.Errorf("refresh changed sessionExpiry to %v", got.SessionExpiry)
	}

	rr = b.do(http.MethodGet, "/api/auth/signin?returnUrl=/pocs/y", nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/pocs/y" {
		t.Errorf("signin while signed in = %d %q, want redirect to /pocs/y", rr.Code, rr.Header().Get("Location"))
	}

	if rr := b.do(http.MethodPost, "/api/auth/signout", nil); rr.Code != http.StatusOK {
		t.Fatalf("signout code = %d", rr.Code)
	}
	if got := b.status(); got.Authenticated || got.User != nil {
		t.Errorf("status after sign out = %+v", got)
	}
}

var cmpIgnoreExpiry = cmp.FilterPath(func(p cmp.Path) bool {
	return p.Last().String() == ".SessionExpiry"
}, cmp.Ignore())

func TestPortal_Callback_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		prepare     func(h *harness)
		wantMessage string
	}{
		{
			name: "identity provider error",
			prepare: func(h *harness) {
				h.auth.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, "", httpio.NewUnauthorizedMessage("Sign in failed: access_denied"))
			},
			wantMessage: "Sign in failed: access_denied",
		},
		{
			name: "backend refuses exchange",
			prepare: func(h *harness) {
				h.auth.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(identity(), "/", nil)
				h.exchanger.EXPECT().Exchange(gomock.Any(), gomock.Any()).Return(nil, &autherr.ExchangeError{
					Err: &autherr.BackendError{Op: "exchange", StatusCode: http.StatusForbidden, Message: "Domain not allowed"},
				})
			},
			wantMessage: "Domain not allowed",
		},
		{
			name: "registration rejected",
			prepare: func(h *harness) {
				h.auth.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(identity(), "/", nil)
				h.exchanger.EXPECT().Exchange(gomock.Any(), gomock.Any()).Return(grant(sessiontypes.StatusRejected, sessiontypes.RoleViewer, "", nil), nil)
			},
			wantMessage: "Your registration was rejected",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			b := h.browser(t)
			tt.prepare(h)

			rr := b.do(http.MethodGet, "/api/auth/callback?code=c&state=s", nil)
			if rr.Code != http.StatusFound {
				t.Fatalf("callback code = %d, want %d", rr.Code, http.StatusFound)
			}
			loc, err := url.Parse(rr.Header().Get("Location"))
			if err != nil {
				t.Fatalf("url.Parse() error = %v", err)
			}
			if loc.Path != "/signin" || loc.Query().Get("message") != tt.wantMessage {
				t.Errorf("callback redirect = %s, want /signin with message %q", loc, tt.wantMessage)
			}
			if got := b.status(); got.Authenticated {
				t.Errorf("session stored after failed callback: %+v", got)
			}
		})
	}
}

func TestPortal_SessionExpires(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithSessionTimeout(time.Hour))
	b := h.browser(t)
	h.signIn(b, grant(sessiontypes.StatusApproved, sessiontypes.RoleDeveloper, "", nil))

	if got := b.status(); !got.Authenticated {
		t.Fatalf("status after sign in = %+v", got)
	}

	h.clock.Advance(time.Hour)
	if got := b.status(); got.Authenticated || got.Reason != access.ReasonNotSignedIn {
		t.Errorf("status after expiry = %+v", got)
	}
	if rr := b.do(http.MethodPost, "/api/auth/refresh", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("refresh after expiry code = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestPortal_Refresh_BackendUnauthorized(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithMirror(sessionstorage.NewMemory()))
	b := h.browser(t)
	h.signIn(b, grant(sessiontypes.StatusApproved, sessiontypes.RoleDeveloper, "", nil))

	h.exchanger.EXPECT().Exchange(gomock.Any(), gomock.Any()).Return(nil, &autherr.ExchangeError{
		Err: &autherr.BackendError{Op: "exchange", StatusCode: http.StatusUnauthorized},
	})
	rr := b.do(http.MethodPost, "/api/auth/refresh", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("refresh code = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if got := b.status(); got.Authenticated {
		t.Errorf("session kept after 401: %+v", got)
	}
}

func TestPortal_Proxy(t *testing.T) {
	t.Parallel()

	var (
		calls    atomic.Int32
		mu       sync.Mutex
		lastPath string
		cookies  int
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		mu.Lock()
		lastPath = r.URL.Path
		cookies = len(r.Cookies())
		mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	t.Cleanup(upstream.Close)
	target, err := url.Parse(upstream.URL + "/v1")
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}

	tests := []struct {
		name      string
		grant     *backend.Grant
		method    string
		path      string
		wantCode  int
		wantCalls int32
		wantPath  string
	}{
		{name: "view-only read", grant: grant(sessiontypes.StatusApproved, sessiontypes.RoleViewer, sessiontypes.AccessViewOnly, nil), method: http.MethodGet, path: "/pocs/x/api/history", wantCode: http.StatusOK, wantCalls: 1, wantPath: "/v1/api/history"},
		{name: "view-only write", grant: grant(sessiontypes.StatusApproved, sessiontypes.RoleViewer, sessiontypes.AccessViewOnly, nil), method: http.MethodPost, path: "/pocs/x/api/run", wantCode: http.StatusForbidden},
		{name: "view-only write with exempt query", grant: grant(sessiontypes.StatusApproved, sessiontypes.RoleViewer, sessiontypes.AccessViewOnly, nil), method: http.MethodPost, path: "/pocs/x/api/run?signout=1", wantCode: http.StatusForbidden},
		{name: "view-only write to demo auth route", grant: grant(sessiontypes.StatusApproved, sessiontypes.RoleViewer, sessiontypes.AccessViewOnly, nil), method: http.MethodPost, path: "/pocs/x/api/auth/login", wantCode: http.StatusForbidden},
		{name: "partial granted page", grant: grant(sessiontypes.StatusApproved, sessiontypes.RoleViewer, sessiontypes.AccessPartial, sessiontypes.PageAccess{"/pocs/x": "full"}), method: http.MethodPost, path: "/pocs/x/api/run", wantCode: http.StatusOK, wantCalls: 1, wantPath: "/v1/api/run"},
		{name: "partial other page", grant: grant(sessiontypes.StatusApproved, sessiontypes.RoleViewer, sessiontypes.AccessPartial, sessiontypes.PageAccess{"/pocs/x": "full"}), method: http.MethodPost, path: "/pocs/y/api/run", wantCode: http.StatusForbidden},
		{name: "full access", grant: grant(sessiontypes.StatusApproved, sessiontypes.RoleDeveloper, sessiontypes.AccessFull, nil), method: http.MethodDelete, path: "/pocs/y/api/run", wantCode: http.StatusOK, wantCalls: 1, wantPath: "/v1/api/run"},
		{name: "unknown demo", grant: grant(sessiontypes.StatusApproved, sessiontypes.RoleDeveloper, sessiontypes.AccessFull, nil), method: http.MethodGet, path: "/pocs/z/api/run", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, WithService("x", target), WithService("y", target))
			b := h.browser(t)
			h.signIn(b, tt.grant)

			before := calls.Load()
			rr := b.do(tt.method, tt.path, strings.NewReader(`{"input":"hello"}`))
			if rr.Code != tt.wantCode {
				t.Fatalf("%s %s code = %d, want %d, body = %s", tt.method, tt.path, rr.Code, tt.wantCode, rr.Body)
			}
			if got := calls.Load() - before; got != tt.wantCalls {
				t.Errorf("upstream calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.wantCode == http.StatusForbidden && message(t, rr) == "" {
				t.Errorf("blocked response has no message")
			}
			if tt.wantCalls > 0 {
				mu.Lock()
				gotPath, gotCookies := lastPath, cookies
				mu.Unlock()
				if gotPath != tt.wantPath {
					t.Errorf("upstream path = %q, want %q", gotPath, tt.wantPath)
				}
				if gotCookies != 0 {
					t.Errorf("upstream received %d cookies", gotCookies)
				}
			}
		})
	}
}

func TestPortal_RequireContent_SignedOut(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	b := h.browser(t)

	if rr := b.do(http.MethodPost, "/pocs/x/api/run", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("API call code = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/pocs/x/api/run", nil)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound || !strings.HasPrefix(rr.Header().Get("Location"), "/signin?returnUrl=") {
		t.Errorf("navigation = %d %q, want redirect to sign in", rr.Code, rr.Header().Get("Location"))
	}
}
