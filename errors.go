package accessgate

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cccteam/accessgate/access"
	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/gate"
	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
)

// clientError writes the response for err and returns the error to log.
func clientError(ctx context.Context, w http.ResponseWriter, err error) error {
	var (
		verr    *autherr.ValidationError
		denied  *autherr.AccessDeniedError
		backErr *autherr.BackendError
	)

	switch {
	case errors.As(err, &verr):
		return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewBadRequestMessageWithError(err, verr.Error()))
	case errors.Is(err, autherr.ErrSessionExpired):
		return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessageWithError(err, "Session expired"))
	case errors.Is(err, autherr.ErrNotAuthenticated), errors.Is(err, autherr.ErrUnauthorized):
		return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewUnauthorizedMessageWithError(err, "Not signed in"))
	case errors.As(err, &denied):
		return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage(gate.Message(access.Reason(denied.Reason))))
	case errors.Is(err, autherr.ErrRejected):
		return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage("Your registration was rejected"))
	case errors.Is(err, autherr.ErrForbidden):
		return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage(backendMessage(err, "Forbidden")))
	case errors.Is(err, autherr.ErrConflict):
		return writeMessage(w, http.StatusConflict, backendMessage(err, "The user was changed by someone else, reload and try again"), err)
	case errors.Is(err, autherr.ErrBackendExchangeFailed), errors.Is(err, autherr.ErrBackendUnreachable):
		return writeMessage(w, http.StatusBadGateway, backendMessage(err, "The authorization service is unavailable"), err)
	case errors.As(err, &backErr):
		if backErr.StatusCode >= http.StatusBadRequest && backErr.StatusCode < http.StatusInternalServerError {
			return writeMessage(w, backErr.StatusCode, backendMessage(err, http.StatusText(backErr.StatusCode)), err)
		}

		return writeMessage(w, http.StatusBadGateway, backendMessage(err, "The authorization service failed"), err)
	}

	return httpio.NewEncoder(w).ClientMessage(ctx, err)
}

// backendMessage returns the detail message the backend sent with err, or fallback.
func backendMessage(err error, fallback string) string {
	var backErr *autherr.BackendError
	if errors.As(err, &backErr) && backErr.Message != "" {
		return backErr.Message
	}

	return fallback
}

// writeMessage writes a message response for statuses httpio has no constructor for.
func writeMessage(w http.ResponseWriter, status int, message string, err error) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(httpio.MessageResponse{Message: message}); encErr != nil {
		return errors.Wrap(encErr, "json.Encoder.Encode()")
	}

	return err
}
