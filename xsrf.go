package accessgate

import (
	"net/http"

	"github.com/cccteam/accessgate/gate"
	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/httpio"
)

// SetXSRFToken sets the XSRF Token. It must follow StartSession.
func (p *Portal) SetXSRFToken(next http.Handler) http.Handler {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		sessionID, ok := sessionIDFromRequest(r)
		if !ok {
			return httpio.NewEncoder(w).ClientMessage(r.Context(), httpio.NewInternalServerErrorMessage("session not started"))
		}

		if p.cookies.SetXSRFTokenCookie(w, r, sessionID, cookie.XSRFCookieLife) && !gate.SafeMethod(r.Method) {
			// Cookie was not present and request requires XSRF Token, so
			// redirect request to try again now that the XSRF Token Cookie is set
			http.Redirect(w, r, r.RequestURI, http.StatusTemporaryRedirect)

			return nil
		}

		next.ServeHTTP(w, r)

		return nil
	})
}

// ValidateXSRFToken validates the XSRF Token
func (p *Portal) ValidateXSRFToken(next http.Handler) http.Handler {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		sessionID, _ := sessionIDFromRequest(r)

		// Validate XSRFToken for non-safe
		if !gate.SafeMethod(r.Method) && !p.cookies.HasValidXSRFToken(r, sessionID) {
			// Token validation failed
			return httpio.NewEncoder(w).ClientMessage(r.Context(), httpio.NewForbiddenMessage("invalid XSRF token"))
		}

		next.ServeHTTP(w, r)

		return nil
	})
}
