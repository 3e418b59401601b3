// Package access decides whether a session may use the product and whether it may mutate data
// on a given path.
package access

import (
	"time"

	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/accessgate/sessiontypes"
)

// Reason explains a denied decision.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNotSignedIn    Reason = "not signed in"
	ReasonSessionExpired Reason = "session expired"
	ReasonNotApproved    Reason = "account not approved"
	ReasonOutsideWindow  Reason = "outside access window"
	ReasonInvalidWindow  Reason = "invalid access window"
	ReasonViewOnly       Reason = "view-only access"
	ReasonPageNotGranted Reason = "no full access to this page"
)

// Decision is the verdict for a session at a point in time.
type Decision struct {
	Allowed    bool
	Level      sessiontypes.AccessLevel
	PageAccess sessiontypes.PageAccess
	Reason     Reason
}

// Decide evaluates info at now.
func Decide(info *sessioninfo.SessionInfo, now time.Time) Decision {
	if info == nil {
		return Decision{Reason: ReasonNotSignedIn}
	}
	if info.Expired(now) {
		return Decision{Reason: ReasonSessionExpired}
	}

	d := Decision{
		Level:      info.AccessLevel,
		PageAccess: info.PageAccess,
	}
	if d.Level == "" {
		d.Level = info.Role.DefaultAccessLevel()
	}

	if info.Status != sessiontypes.StatusApproved {
		d.Reason = ReasonNotApproved

		return d
	}

	if info.Role == sessiontypes.RoleAdministrator {
		d.Allowed = true

		return d
	}

	w, err := info.Window()
	if err != nil {
		d.Reason = ReasonInvalidWindow

		return d
	}
	if !w.Contains(now) {
		d.Reason = ReasonOutsideWindow

		return d
	}

	d.Allowed = true

	return d
}

// CanMutate reports if a state changing request to path is permitted.
func (d Decision) CanMutate(path string) bool {
	return d.MutationReason(path) == ReasonNone
}

// MutationReason returns why a state changing request to path is blocked, or ReasonNone.
func (d Decision) MutationReason(path string) Reason {
	switch {
	case !d.Allowed:
		if d.Reason == ReasonNone {
			return ReasonNotSignedIn
		}

		return d.Reason
	case d.Level == sessiontypes.AccessViewOnly:
		return ReasonViewOnly
	case d.Level == sessiontypes.AccessPartial && !d.PageAccess.Grants(path):
		return ReasonPageNotGranted
	}

	return ReasonNone
}

// CanRead reports if the session may view content. Reads are never subject to the
// page map or the access level.
func (d Decision) CanRead() bool {
	return d.Allowed
}

// Authenticated reports if the decision was made for a current, signed in session.
func (d Decision) Authenticated() bool {
	return d.Reason != ReasonNotSignedIn && d.Reason != ReasonSessionExpired
}

// Err returns the error matching a denied decision, or nil when access is allowed.
func (d Decision) Err() error {
	switch d.Reason {
	case ReasonNone:
		if d.Allowed {
			return nil
		}

		return autherr.ErrNotAuthenticated
	case ReasonNotSignedIn, ReasonSessionExpired:
		return autherr.ErrNotAuthenticated
	}

	return &autherr.AccessDeniedError{Reason: string(d.Reason)}
}
