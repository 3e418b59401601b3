// Package admin implements user access administration on top of the backend admin endpoints.
package admin

import (
	"context"
	"time"

	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/backend"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/accessgate/sessiontypes"
	"github.com/cccteam/accessgate/timewindow"
	"github.com/cccteam/ccc"
	"github.com/cccteam/ccc/accesstypes"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/go-playground/validator/v10"
)

// Admin validates administration requests and forwards them to the backend.
type Admin struct {
	api       backend.AdminAPI
	presenter *timewindow.Presenter
	validator *validator.Validate
	signOut   SignOutFunc
}

// Option configures an Admin.
type Option func(*Admin)

// WithPresenter sets the location used to interpret and render window bounds. Defaults to UTC.
func WithPresenter(p *timewindow.Presenter) Option {
	return func(a *Admin) {
		a.presenter = p
	}
}

// WithSignOut sets the hook invoked when the backend responds 401.
func WithSignOut(fn SignOutFunc) Option {
	return func(a *Admin) {
		a.signOut = fn
	}
}

// New returns an Admin backed by api.
func New(api backend.AdminAPI, opts ...Option) *Admin {
	a := &Admin{
		api:       api,
		presenter: timewindow.NewPresenterIn(time.UTC, time.Now),
		validator: newValidator(),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// ListUsers returns every user record.
func (a *Admin) ListUsers(ctx context.Context) ([]UserView, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	token, err := callerToken(ctx)
	if err != nil {
		return nil, err
	}

	users, err := a.api.ListUsers(ctx, token)
	if err != nil {
		return nil, a.backendErr(ctx, err, "backend.AdminAPI.ListUsers()")
	}

	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, a.view(ctx, &users[i]))
	}

	return views, nil
}

// UpdateAccess changes a user's role, access level, window and page access. The window bounds
// of change are local times and are stored as UTC.
func (a *Admin) UpdateAccess(ctx context.Context, change *AccessChange) (*UserView, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	if change == nil {
		return nil, &autherr.ValidationError{Message: "access change is required"}
	}
	if err := a.validate(change); err != nil {
		return nil, err
	}

	level := change.AccessLevel
	if level == "" {
		level = change.Role.DefaultAccessLevel()
	}
	start, err := a.presenter.FromLocal(change.StartTime)
	if err != nil {
		return nil, &autherr.ValidationError{Field: "accessStartTime", Message: err.Error()}
	}
	end, err := a.presenter.FromLocal(change.EndTime)
	if err != nil {
		return nil, &autherr.ValidationError{Field: "accessEndTime", Message: err.Error()}
	}
	pages := change.PageAccess.Clone()
	if level != sessiontypes.AccessPartial {
		pages = nil
	}

	token, err := callerToken(ctx)
	if err != nil {
		return nil, err
	}

	user, err := a.api.UpdateAccess(ctx, token, &backend.AccessUpdate{
		ID:              change.UserID,
		Roles:           change.Role.List(),
		AccessLevel:     string(level),
		AccessStartTime: start,
		AccessEndTime:   end,
		PageAccess:      pages,
		Version:         change.Version,
	})
	if err != nil {
		return nil, a.backendErr(ctx, err, "backend.AdminAPI.UpdateAccess()")
	}

	logger.FromCtx(ctx).WithAttributes().
		AddAttribute("admin", actor(ctx)).
		AddAttribute("target", accesstypes.User(change.UserID)).
		AddAttribute("accessLevel", string(level)).
		Logger().Infof("access updated for %s: role=%s window=%s-%s", change.UserID, change.Role, start, end)

	v := a.view(ctx, user)

	return &v, nil
}

// UpdateStatus records an approval decision.
func (a *Admin) UpdateStatus(ctx context.Context, change *StatusChange) (*UserView, error) {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	if change == nil {
		return nil, &autherr.ValidationError{Message: "status change is required"}
	}
	if err := a.validate(change); err != nil {
		return nil, err
	}

	token, err := callerToken(ctx)
	if err != nil {
		return nil, err
	}

	user, err := a.api.UpdateStatus(ctx, token, &backend.StatusUpdate{UserID: change.UserID, Status: change.Status, Version: change.Version})
	if err != nil {
		return nil, a.backendErr(ctx, err, "backend.AdminAPI.UpdateStatus()")
	}

	logger.FromCtx(ctx).WithAttributes().
		AddAttribute("admin", actor(ctx)).
		AddAttribute("target", accesstypes.User(change.UserID)).
		Logger().Infof("status of %s set to %s", change.UserID, change.Status)

	v := a.view(ctx, user)

	return &v, nil
}

// Approve marks a user as approved.
func (a *Admin) Approve(ctx context.Context, userID, version string) (*UserView, error) {
	return a.UpdateStatus(ctx, &StatusChange{UserID: userID, Status: sessiontypes.StatusApproved, Version: version})
}

// Reject marks a user as rejected.
func (a *Admin) Reject(ctx context.Context, userID, version string) (*UserView, error) {
	return a.UpdateStatus(ctx, &StatusChange{UserID: userID, Status: sessiontypes.StatusRejected, Version: version})
}

// DeleteUser removes a user.
func (a *Admin) DeleteUser(ctx context.Context, userID string) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	if userID == "" {
		return &autherr.ValidationError{Field: "id", Message: "is required"}
	}

	token, err := callerToken(ctx)
	if err != nil {
		return err
	}

	if err := a.api.DeleteUser(ctx, token, userID); err != nil {
		return a.backendErr(ctx, err, "backend.AdminAPI.DeleteUser()")
	}

	logger.FromCtx(ctx).WithAttributes().
		AddAttribute("admin", actor(ctx)).
		AddAttribute("target", accesstypes.User(userID)).
		Logger().Infof("user %s deleted", userID)

	return nil
}

// backendErr signs the caller out when the backend no longer accepts their session token.
func (a *Admin) backendErr(ctx context.Context, err error, op string) error {
	if errors.Is(err, autherr.ErrUnauthorized) && a.signOut != nil {
		if serr := a.signOut(ctx); serr != nil {
			logger.FromCtx(ctx).Error(errors.Wrap(serr, "SignOutFunc()"))
		}
	}

	return errors.Wrap(err, op)
}

func (a *Admin) view(ctx context.Context, u *backend.User) UserView {
	role := u.Role()
	level, err := sessiontypes.ParseAccessLevel(u.AccessLevel)
	if err != nil {
		level = role.DefaultAccessLevel()
	}

	v := UserView{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Status:          u.Status,
		Role:            role,
		AccessLevel:     level,
		AccessStartTime: u.AccessStartTime,
		AccessEndTime:   u.AccessEndTime,
		PageAccess:      u.PageAccess,
		Version:         u.Version,
	}
	if v.LocalStartTime, err = a.presenter.ToLocal(u.AccessStartTime); err != nil {
		logger.FromCtx(ctx).Infof("user %s has malformed accessStartTime %q: %s", u.ID, u.AccessStartTime, err)
	}
	if v.LocalEndTime, err = a.presenter.ToLocal(u.AccessEndTime); err != nil {
		logger.FromCtx(ctx).Infof("user %s has malformed accessEndTime %q: %s", u.ID, u.AccessEndTime, err)
	}

	return v
}

func callerToken(ctx context.Context) (string, error) {
	sess, ok := sessioninfo.Lookup(ctx)
	if !ok || sess == nil || sess.Token == "" {
		return "", errors.Wrap(autherr.ErrNotAuthenticated, "sessioninfo.Lookup()")
	}

	return sess.Token, nil
}

func actor(ctx context.Context) accesstypes.User {
	if sess, ok := sessioninfo.Lookup(ctx); ok && sess != nil && sess.Info != nil {
		return accesstypes.User(sess.Info.UserID)
	}

	return ""
}
