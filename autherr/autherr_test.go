package autherr

import (
	"errors"
	"net/http"
	"testing"
)

func TestBackendError_Is(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		target     error
		want       bool
	}{
		{name: "401 is unauthorized", statusCode: http.StatusUnauthorized, target: ErrUnauthorized, want: true},
		{name: "403 is forbidden", statusCode: http.StatusForbidden, target: ErrForbidden, want: true},
		{name: "409 is conflict", statusCode: http.StatusConflict, target: ErrConflict, want: true},
		{name: "412 is conflict", statusCode: http.StatusPreconditionFailed, target: ErrConflict, want: true},
		{name: "403 is not unauthorized", statusCode: http.StatusForbidden, target: ErrUnauthorized, want: false},
		{name: "500 is not forbidden", statusCode: http.StatusInternalServerError, target: ErrForbidden, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := error(&BackendError{Op: "test", StatusCode: tt.statusCode})
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExchangeError(t *testing.T) {
	t.Parallel()

	err := error(&ExchangeError{Err: &BackendError{Op: "exchange", StatusCode: http.StatusForbidden, Message: "nope"}})

	if !errors.Is(err, ErrBackendExchangeFailed) {
		t.Errorf("errors.Is(ErrBackendExchangeFailed) = false, want true")
	}
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("errors.Is(ErrForbidden) = false, want true")
	}

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("errors.As(*BackendError) = false, want true")
	}
	if be.Message != "nope" {
		t.Errorf("BackendError.Message = %q, want %q", be.Message, "nope")
	}
}

func TestAccessDeniedError_Is(t *testing.T) {
	t.Parallel()

	err := error(&AccessDeniedError{Method: http.MethodPost, URL: "/pocs/x", Reason: "view-only"})
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("errors.Is(ErrAccessDenied) = false, want true")
	}
	if got, want := err.Error(), "POST /pocs/x blocked: view-only"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
