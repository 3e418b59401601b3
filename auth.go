package accessgate

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cccteam/accessgate/access"
	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/accessgate/lifecycle"
	"github.com/cccteam/accessgate/oidc"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/accessgate/sessiontypes"
	"github.com/cccteam/ccc"
	"github.com/cccteam/httpio"
	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
)

type userResponse struct {
	ID    string            `json:"id"`
	Email string            `json:"email"`
	Name  string            `json:"name"`
	Role  sessiontypes.Role `json:"role"`
}

type statusResponse struct {
	Authenticated bool                     `json:"authenticated"`
	State         string                   `json:"state"`
	Surface       lifecycle.Surface        `json:"surface"`
	User          *userResponse            `json:"user,omitempty"`
	Status        sessiontypes.Status      `json:"status,omitempty"`
	AccessAllowed bool                     `json:"accessAllowed"`
	AccessLevel   sessiontypes.AccessLevel `json:"accessLevel,omitempty"`
	PageAccess    sessiontypes.PageAccess  `json:"pageAccess,omitempty"`
	Reason        access.Reason            `json:"reason,omitempty"`
	SessionExpiry *time.Time               `json:"sessionExpiry,omitempty"`
}

// Login starts sign in by redirecting to the identity provider. A user who is already signed
// in is sent straight to the returnUrl.
func (p *Portal) Login() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.Login()")
		defer span.End()

		lc, ok := lifecycleFromCtx(ctx)
		if !ok {
			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewInternalServerErrorMessage("session not started"))
		}

		returnURL := r.URL.Query().Get("returnUrl")
		started, err := lc.BeginSignIn(ctx)
		if err != nil {
			return clientError(ctx, w, errors.Wrap(err, "lifecycle.Lifecycle.BeginSignIn()"))
		}
		if !started {
			http.Redirect(w, r, p.returnURL(returnURL), http.StatusFound)

			return nil
		}

		authCodeURL, err := p.oidc.AuthCodeURL(ctx, w, returnURL)
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		http.Redirect(w, r, authCodeURL, http.StatusFound)

		return nil
	})
}

// Callback completes sign in when the identity provider redirects back. The verified identity
// is exchanged with the backend; users awaiting approval are sent to the pending page.
func (p *Portal) Callback() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.Callback()")
		defer span.End()

		identity, returnURL, err := p.oidc.Verify(ctx, w, r)
		if err != nil {
			p.redirectToLogin(w, r, httpio.Message(err))

			return errors.Wrap(err, "oidc.Authenticator.Verify()")
		}

		lc, ok := lifecycleFromCtx(ctx)
		if !ok {
			p.redirectToLogin(w, r, "Internal Server Error")

			return errors.New("session not started")
		}

		sess, err := lc.CompleteSignIn(ctx, identity)
		if err != nil {
			p.redirectToLogin(w, r, signInFailure(err))

			return errors.Wrap(err, "lifecycle.Lifecycle.CompleteSignIn()")
		}

		// The auth cookie stays SameSite=Lax for the rest of the redirect chain started by
		// the identity provider. StartSession upgrades it on the next request.
		if sessionID, ok := sessionIDFromRequest(r); ok {
			if err := p.cookies.WriteAuthCookie(w, false, map[cookie.Key]string{cookie.SessionID: sessionID.String()}); err != nil {
				p.redirectToLogin(w, r, "Internal Server Error")

				return errors.Wrap(err, "cookie.Handler.WriteAuthCookie()")
			}
		}

		if sess.Info.Status != sessiontypes.StatusApproved {
			http.Redirect(w, r, p.pendingURL, http.StatusFound)

			return nil
		}

		http.Redirect(w, r, p.returnURL(returnURL), http.StatusFound)

		return nil
	})
}

// RefreshStatus exchanges the cached identity again, so approval and access changes made by an
// administrator take effect without signing in again.
func (p *Portal) RefreshStatus() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.RefreshStatus()")
		defer span.End()

		lc, ok := lifecycleFromCtx(ctx)
		if !ok {
			return clientError(ctx, w, autherr.ErrNotAuthenticated)
		}

		sess, err := lc.Refresh(ctx)
		if err != nil {
			return clientError(ctx, w, errors.Wrap(err, "lifecycle.Lifecycle.Refresh()"))
		}

		return httpio.NewEncoder(w).Ok(p.status(lc, sess))
	})
}

// Status reports the current session and the access decision for it.
func (p *Portal) Status() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.Status()")
		defer span.End()

		lc, ok := lifecycleFromCtx(ctx)
		if !ok {
			return httpio.NewEncoder(w).Ok(statusResponse{State: lifecycle.Unauthenticated.String(), Surface: lifecycle.SurfaceSignIn, Reason: access.ReasonNotSignedIn})
		}
		sess, _ := sessioninfo.Lookup(ctx)

		return httpio.NewEncoder(w).Ok(p.status(lc, sess))
	})
}

// SignOut ends the session.
func (p *Portal) SignOut() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.SignOut()")
		defer span.End()

		if lc, ok := lifecycleFromCtx(ctx); ok {
			if err := lc.SignOut(ctx); err != nil {
				return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "lifecycle.Lifecycle.SignOut()"))
			}
		}

		// A new session ID orphans anything a request still in flight writes for the old one.
		sessionID, err := ccc.NewUUID()
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "ccc.NewUUID()"))
		}
		if _, err := p.cookies.NewAuthCookie(w, true, sessionID); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "cookie.Handler.NewAuthCookie()"))
		}

		if r.URL.Query().Has("redirect") {
			http.Redirect(w, r, p.homeURL, http.StatusSeeOther)

			return nil
		}

		return httpio.NewEncoder(w).Ok(nil)
	})
}

func (p *Portal) status(lc lifecycle.Lifecycle, sess *sessioninfo.Session) statusResponse {
	state := lc.State()
	decision := access.Decide(infoOf(sess), p.now())

	res := statusResponse{
		Authenticated: sess.Authenticated(),
		State:         state.String(),
		Surface:       state.Surface(),
		AccessAllowed: decision.Allowed,
		AccessLevel:   decision.Level,
		PageAccess:    decision.PageAccess,
		Reason:        decision.Reason,
	}
	if sess.Authenticated() {
		res.User = &userResponse{ID: sess.Info.UserID, Email: sess.Info.Email, Name: sess.Info.Name, Role: sess.Info.Role}
		res.Status = sess.Info.Status
		if !sess.Info.SessionExpiry.IsZero() {
			exp := sess.Info.SessionExpiry
			res.SessionExpiry = &exp
		}
	}

	return res
}

func (p *Portal) returnURL(u string) string {
	if u == "" {
		return p.homeURL
	}

	return oidc.SafeReturnURL(u)
}

func (p *Portal) redirectToLogin(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, fmt.Sprintf("%s?message=%s", p.oidc.LoginURL(), url.QueryEscape(message)), http.StatusFound)
}

func signInFailure(err error) string {
	switch {
	case errors.Is(err, autherr.ErrRejected):
		return "Your registration was rejected"
	case errors.Is(err, autherr.ErrBackendExchangeFailed):
		return backendMessage(err, "Sign in could not be completed, try again later")
	}

	return "Internal Server Error"
}

func infoOf(sess *sessioninfo.Session) *sessioninfo.SessionInfo {
	if !sess.Authenticated() {
		return nil
	}

	return sess.Info
}
