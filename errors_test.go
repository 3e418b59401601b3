package accessgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cccteam/accessgate/access"
	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/gate"
	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
)

func TestClientError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{
			name:        "validation",
			err:         errors.Wrap(&autherr.ValidationError{Field: "role", Message: "must be one of ADMINISTRATOR DEVELOPER VIEWER"}, "admin.Admin.UpdateAccess()"),
			wantCode:    http.StatusBadRequest,
			wantMessage: "role: must be one of ADMINISTRATOR DEVELOPER VIEWER",
		},
		{
			name:        "session expired",
			err:         errors.Wrap(autherr.ErrSessionExpired, "lifecycle.Lifecycle.Refresh()"),
			wantCode:    http.StatusUnauthorized,
			wantMessage: "Session expired",
		},
		{
			name:        "not authenticated",
			err:         autherr.ErrNotAuthenticated,
			wantCode:    http.StatusUnauthorized,
			wantMessage: "Not signed in",
		},
		{
			name:        "blocked by gate",
			err:         &autherr.AccessDeniedError{Method: http.MethodPost, URL: "/api/run", Reason: string(access.ReasonViewOnly)},
			wantCode:    http.StatusForbidden,
			wantMessage: gate.Message(access.ReasonViewOnly),
		},
		{
			name:        "rejected",
			err:         autherr.ErrRejected,
			wantCode:    http.StatusForbidden,
			wantMessage: "Your registration was rejected",
		},
		{
			name:        "backend forbidden",
			err:         &autherr.BackendError{Op: "users", StatusCode: http.StatusForbidden, Message: "Administrators only"},
			wantCode:    http.StatusForbidden,
			wantMessage: "Administrators only",
		},
		{
			name:        "conflict",
			err:         &autherr.BackendError{Op: "access", StatusCode: http.StatusPreconditionFailed},
			wantCode:    http.StatusConflict,
			wantMessage: "The user was changed by someone else, reload and try again",
		},
		{
			name:        "backend unreachable",
			err:         errors.Wrap(autherr.ErrBackendUnreachable, "backend.Client.do()"),
			wantCode:    http.StatusBadGateway,
			wantMessage: "The authorization service is unavailable",
		},
		{
			name:        "backend not found",
			err:         &autherr.BackendError{Op: "delete", StatusCode: http.StatusNotFound, Message: "No such user"},
			wantCode:    http.StatusNotFound,
			wantMessage: "No such user",
		},
		{
			name:        "backend failure",
			err:         &autherr.BackendError{Op: "users", StatusCode: http.StatusInternalServerError},
			wantCode:    http.StatusBadGateway,
			wantMessage: "The authorization service failed",
		},
		{
			name:        "client message",
			err:         httpio.NewNotFoundMessagef("unknown demo %q", "z"),
			wantCode:    http.StatusNotFound,
			wantMessage: `unknown demo "z"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := httptest.NewRecorder()
			_ = clientError(context.Background(), rr, tt.err)
			if rr.Code != tt.wantCode {
				t.Errorf("clientError() code = %d, want %d", rr.Code, tt.wantCode)
			}
			if got := message(t, rr); got != tt.wantMessage {
				t.Errorf("clientError() message = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}
