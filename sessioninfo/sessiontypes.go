// sessioninfo package holds the session record and the identity it was established from.
package sessioninfo

import (
	"time"

	"github.com/cccteam/accessgate/sessiontypes"
	"github.com/cccteam/accessgate/timewindow"
	"github.com/go-playground/errors/v5"
)

// SessionInfo is the authenticated user's identity and authorization attributes, as returned
// by the backend exchange.
type SessionInfo struct {
	UserID          string                   `json:"userId"`
	Email           string                   `json:"email"`
	Name            string                   `json:"name"`
	Status          sessiontypes.Status      `json:"status"`
	Role            sessiontypes.Role        `json:"role"`
	AccessLevel     sessiontypes.AccessLevel `json:"accessLevel"`
	AccessStartTime string                   `json:"accessStartTime,omitempty"`
	AccessEndTime   string                   `json:"accessEndTime,omitempty"`
	PageAccess      sessiontypes.PageAccess  `json:"pageAccess,omitempty"`
	SessionExpiry   time.Time                `json:"sessionExpiry"`
}

// Expired reports if the session is invalid at now. A zero expiry never expires.
func (s *SessionInfo) Expired(now time.Time) bool {
	if s.SessionExpiry.IsZero() {
		return false
	}

	return !now.Before(s.SessionExpiry)
}

// Window returns the parsed access window.
func (s *SessionInfo) Window() (timewindow.Window, error) {
	w, err := timewindow.NewWindow(s.AccessStartTime, s.AccessEndTime)
	if err != nil {
		return timewindow.Window{}, errors.Wrap(err, "timewindow.NewWindow()")
	}

	return w, nil
}

// Clone returns a deep copy of s.
func (s *SessionInfo) Clone() *SessionInfo {
	if s == nil {
		return nil
	}
	c := *s
	c.PageAccess = s.PageAccess.Clone()

	return &c
}

// Profile is the user profile supplied by the identity provider.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// Identity is the token set obtained from the identity provider at sign in.
type Identity struct {
	Provider    string    `json:"provider"`
	IDToken     string    `json:"idToken"`
	AccessToken string    `json:"accessToken"`
	Profile     Profile   `json:"profile"`
	Expiry      time.Time `json:"expiry"`
}

// Session is everything held for a signed in user: the record, the opaque
// session token used for backend calls, and the cached identity.
type Session struct {
	Info     *SessionInfo
	Token    string
	Identity *Identity
}

// Authenticated reports if s holds a record.
func (s *Session) Authenticated() bool {
	return s != nil && s.Info != nil
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := &Session{Info: s.Info.Clone(), Token: s.Token}
	if s.Identity != nil {
		id := *s.Identity
		c.Identity = &id
	}

	return c
}
