package accessgate

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/accessgate/lifecycle"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/accessgate/sessionstorage"
	"github.com/cccteam/accessgate/sessiontypes"
	"github.com/cccteam/ccc"
	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"go.opentelemetry.io/otel"
)

// StartSession restores the session cookie, or starts a new one, and loads the current
// session. Every request gets its own lifecycle manager over the session store. An expired
// or rejected session is signed out here, so later handlers see the user as signed out.
func (p *Portal) StartSession(next http.Handler) http.Handler {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.StartSession()")
		defer span.End()

		cval, found := p.cookies.ReadAuthCookie(r)
		sessionID, valid := cookie.ValidSessionID(cval[cookie.SessionID])
		if !found || !valid {
			var err error
			sessionID, err = ccc.NewUUID()
			if err != nil {
				return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "ccc.NewUUID()"))
			}
			cval, err = p.cookies.NewAuthCookie(w, true, sessionID)
			if err != nil {
				return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "cookie.Handler.NewAuthCookie()"))
			}
		}

		// Upgrade cookie to SameSite=Strict
		// since Callback() sets it to Lax to allow the OIDC redirect to work
		if cval[cookie.SameSiteStrict] != strconv.FormatBool(true) {
			if err := p.cookies.WriteAuthCookie(w, true, cval); err != nil {
				return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "cookie.Handler.WriteAuthCookie()"))
			}
		}

		l := logger.FromCtx(ctx).AddRequestAttribute("session ID", sessionID).
			WithAttributes().AddAttribute("session ID", sessionID).Logger()
		ctx = logger.NewCtx(ctx, l)

		opts := append(p.lifecycleOptions(), lifecycle.WithLock(p.locks.For(sessionID.String())))
		lc := lifecycle.New(p.store(w, r, sessionID), p.exchanger, opts...)
		defer lc.Close()

		ctx = context.WithValue(ctx, ctxSessionID, sessionID)
		ctx = context.WithValue(ctx, ctxLifecycle, lifecycle.Lifecycle(lc))

		sess, err := lc.Current(ctx)
		switch {
		case errors.Is(err, autherr.ErrSessionExpired), errors.Is(err, autherr.ErrRejected):
			logger.FromCtx(ctx).Infof("session ended: %s", err)
		case err != nil:
			return httpio.NewEncoder(w).ClientMessage(ctx, errors.Wrap(err, "lifecycle.Manager.Current()"))
		case sess != nil:
			ctx = withSession(ctx, sess)
		}

		next.ServeHTTP(w, r.WithContext(ctx))

		return nil
	})
}

// RequireContent only lets active, approved users through. Signed out users get a 401 (or are
// redirected to sign in when requesting a page) and users awaiting approval get a 403 (or are
// redirected to the pending page).
func (p *Portal) RequireContent(next http.Handler) http.Handler {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Portal.RequireContent()")
		defer span.End()

		sess, _ := sessioninfo.Lookup(ctx)
		switch {
		case !sess.Authenticated():
			if wantsPage(r) {
				http.Redirect(w, r, p.oidc.LoginURL()+"?returnUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)

				return nil
			}

			return clientError(ctx, w, autherr.ErrNotAuthenticated)
		case sess.Info.Status != sessiontypes.StatusApproved:
			if wantsPage(r) {
				http.Redirect(w, r, p.pendingURL, http.StatusFound)

				return nil
			}

			return httpio.NewEncoder(w).ClientMessage(ctx, httpio.NewForbiddenMessage("Your account is awaiting approval"))
		}

		next.ServeHTTP(w, r)

		return nil
	})
}

// RequireAdministrator only lets administrators through. It must follow RequireContent.
func (p *Portal) RequireAdministrator(next http.Handler) http.Handler {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		sess, _ := sessioninfo.Lookup(r.Context())
		if !sess.Authenticated() || sess.Info.Role != sessiontypes.RoleAdministrator {
			return httpio.NewEncoder(w).ClientMessage(r.Context(), httpio.NewForbiddenMessage("Administrator role required"))
		}

		next.ServeHTTP(w, r)

		return nil
	})
}

// store returns the session store for one request.
func (p *Portal) store(w http.ResponseWriter, r *http.Request, sessionID ccc.UUID) sessionstorage.Store {
	if p.mirror != nil {
		return sessionstorage.New(sessionstorage.Scoped(p.mirror, sessionID))
	}

	return sessionstorage.New(sessionstorage.NewCookieKV(p.cookies, w, r, sessionID))
}

func withSession(ctx context.Context, sess *sessioninfo.Session) context.Context {
	ctx = sessioninfo.NewCtx(ctx, sess)
	l := logger.FromCtx(ctx).AddRequestAttribute("user ID", sess.Info.UserID).
		WithAttributes().AddAttribute("user ID", sess.Info.UserID).Logger()

	return logger.NewCtx(ctx, l)
}

func logStateChange(ctx context.Context, from, to lifecycle.State) {
	logger.FromCtx(ctx).Infof("session state %s -> %s", from, to)
}

// wantsPage reports if r is a browser navigation rather than an API call.
func wantsPage(r *http.Request) bool {
	return r.Method == http.MethodGet && r.Header.Get("Sec-Fetch-Mode") == "navigate"
}
