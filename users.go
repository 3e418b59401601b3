package accessgate

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cccteam/accessgate/admin"
	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
)

const maxAdminBody = 1 << 20

type deleteUserRequest struct {
	ID string `json:"id"`
}

// ListUsers returns every user with their access settings.
func (p *Portal) ListUsers() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.ListUsers()")
		defer span.End()

		users, err := p.admin.ListUsers(ctx)
		if err != nil {
			return clientError(ctx, w, errors.Wrap(err, "admin.Administrator.ListUsers()"))
		}

		return httpio.NewEncoder(w).Ok(users)
	})
}

// UpdateUserAccess changes a user's role, access level, window and page access.
func (p *Portal) UpdateUserAccess() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.UpdateUserAccess()")
		defer span.End()

		change := &admin.AccessChange{}
		if err := decode(r, change); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		user, err := p.admin.UpdateAccess(ctx, change)
		if err != nil {
			return clientError(ctx, w, errors.Wrap(err, "admin.Administrator.UpdateAccess()"))
		}

		return httpio.NewEncoder(w).Ok(user)
	})
}

// UpdateUserStatus approves or rejects a user.
func (p *Portal) UpdateUserStatus() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.UpdateUserStatus()")
		defer span.End()

		change := &admin.StatusChange{}
		if err := decode(r, change); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		user, err := p.admin.UpdateStatus(ctx, change)
		if err != nil {
			return clientError(ctx, w, errors.Wrap(err, "admin.Administrator.UpdateStatus()"))
		}

		return httpio.NewEncoder(w).Ok(user)
	})
}

// DeleteUser removes a user.
func (p *Portal) DeleteUser() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.DeleteUser()")
		defer span.End()

		req := &deleteUserRequest{}
		if err := decode(r, req); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		if err := p.admin.DeleteUser(ctx, req.ID); err != nil {
			return clientError(ctx, w, errors.Wrap(err, "admin.Administrator.DeleteUser()"))
		}

		return httpio.NewEncoder(w).Ok(nil)
	})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAdminBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return httpio.NewBadRequestMessageWithError(err, "Invalid request body")
	}

	return nil
}
