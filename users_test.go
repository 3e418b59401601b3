package accessgate

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/cccteam/accessgate/admin"
	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/backend"
	"github.com/cccteam/accessgate/mock/mock_backend"
	"github.com/cccteam/accessgate/sessiontypes"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/mock/gomock"
)

func TestPortal_ListUsers(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	b := h.browser(t)
	h.signIn(b, grant(sessiontypes.StatusApproved, sessiontypes.RoleAdministrator, "", nil))

	h.adminAPI.EXPECT().ListUsers(gomock.Any(), "session-token").Return([]backend.User{
		{ID: "u2", Email: "u2@example.com", Status: sessiontypes.StatusPending, Roles: []string{"VIEWER"}},
	}, nil)

	rr := b.do(http.MethodGet, "/api/admin/users", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/admin/users code = %d, body = %s", rr.Code, rr.Body)
	}
	var got []admin.UserView
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	want := []admin.UserView{
		{ID: "u2", Email: "u2@example.com", Status: sessiontypes.StatusPending, Role: sessiontypes.RoleViewer, AccessLevel: sessiontypes.AccessViewOnly},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListUsers mismatch (-want +got):\n%s", diff)
	}
}

func TestPortal_AdminRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		role          sessiontypes.Role
		prepare       func(api *mock_backend.MockAdminAPI)
		path          string
		body          string
		wantCode      int
		wantSignedOut bool
	}{
		{
			name:     "not an administrator",
			role:     sessiontypes.RoleDeveloper,
			path:     "/api/admin/users/status",
			body:     `{"userId":"u2","status":"APPROVED"}`,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown field",
			role:     sessiontypes.RoleAdministrator,
			path:     "/api/admin/users/access",
			body:     `{"id":"u2","role":"VIEWER","bogus":1}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid role",
			role:     sessiontypes.RoleAdministrator,
			path:     "/api/admin/users/access",
			body:     `{"id":"u2","role":"OWNER"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "status back to pending",
			role:     sessiontypes.RoleAdministrator,
			path:     "/api/admin/users/status",
			body:     `{"userId":"u2","status":"PENDING"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "approve",
			role: sessiontypes.RoleAdministrator,
			prepare: func(api *mock_backend.MockAdminAPI) {
				api.EXPECT().UpdateStatus(gomock.Any(), "session-token", &backend.StatusUpdate{UserID: "u2", Status: sessiontypes.StatusApproved}).
					Return(&backend.User{ID: "u2", Status: sessiontypes.StatusApproved, Roles: []string{"VIEWER"}}, nil)
			},
			path:     "/api/admin/users/status",
			body:     `{"userId":"u2","status":"APPROVED"}`,
			wantCode: http.StatusOK,
		},
		{
			name: "stale version",
			role: sessiontypes.RoleAdministrator,
			prepare: func(api *mock_backend.MockAdminAPI) {
				api.EXPECT().UpdateStatus(gomock.Any(), "session-token", gomock.Any()).
					Return(nil, &autherr.BackendError{Op: "status", StatusCode: http.StatusPreconditionFailed})
			},
			path:     "/api/admin/users/status",
			body:     `{"userId":"u2","status":"REJECTED","version":"3"}`,
			wantCode: http.StatusConflict,
		},
		{
			name: "backend rejects session token",
			role: sessiontypes.RoleAdministrator,
			prepare: func(api *mock_backend.MockAdminAPI) {
				api.EXPECT().DeleteUser(gomock.Any(), "session-token", "u2").
					Return(&autherr.BackendError{Op: "delete", StatusCode: http.StatusUnauthorized})
			},
			path:          "/api/admin/users/delete",
			body:          `{"id":"u2"}`,
			wantCode:      http.StatusUnauthorized,
			wantSignedOut: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			b := h.browser(t)
			h.signIn(b, grant(sessiontypes.StatusApproved, tt.role, "", nil))
			if tt.prepare != nil {
				tt.prepare(h.adminAPI)
			}

			rr := b.do(http.MethodPost, tt.path, strings.NewReader(tt.body))
			if rr.Code != tt.wantCode {
				t.Fatalf("POST %s code = %d, want %d, body = %s", tt.path, rr.Code, tt.wantCode, rr.Body)
			}
			if got := b.status(); got.Authenticated == tt.wantSignedOut {
				t.Errorf("Authenticated = %v, want %v", got.Authenticated, !tt.wantSignedOut)
			}
		})
	}
}
