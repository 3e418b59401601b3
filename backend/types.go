package backend

import (
	"github.com/cccteam/accessgate/sessioninfo"
	"github.com/cccteam/accessgate/sessiontypes"
)

// Grant is the result of a successful exchange.
type Grant struct {
	Token string
	Info  *sessioninfo.SessionInfo
}

type exchangeUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

type exchangeRequest struct {
	User        exchangeUser `json:"user"`
	IDToken     string       `json:"idToken"`
	AccessToken string       `json:"accessToken"`
	Provider    string       `json:"provider"`
	Timestamp   int64        `json:"timestamp"`
}

type exchangeResponse struct {
	AccessToken     string            `json:"access_token"`
	UserID          string            `json:"userId"`
	Email           string            `json:"email"`
	Name            string            `json:"name"`
	Status          string            `json:"status"`
	Roles           []string          `json:"roles"`
	AccessLevel     string            `json:"accessLevel"`
	AccessStartTime string            `json:"accessStartTime"`
	AccessEndTime   string            `json:"accessEndTime"`
	PageAccess      map[string]string `json:"pageAccess"`
}

// User is a user record as returned by the administration endpoints.
type User struct {
	ID              string                  `json:"id"`
	Email           string                  `json:"email"`
	Name            string                  `json:"name"`
	Status          sessiontypes.Status     `json:"status"`
	Roles           []string                `json:"roles"`
	AccessLevel     string                  `json:"accessLevel,omitempty"`
	AccessStartTime string                  `json:"accessStartTime,omitempty"`
	AccessEndTime   string                  `json:"accessEndTime,omitempty"`
	PageAccess      sessiontypes.PageAccess `json:"pageAccess,omitempty"`
	Version         string                  `json:"version,omitempty"`
}

// Role returns the user's authoritative role.
func (u *User) Role() sessiontypes.Role {
	return sessiontypes.RoleFromList(u.Roles)
}

// AccessUpdate is the body of an access change. Version, when set, is sent as If-Match.
type AccessUpdate struct {
	ID              string                  `json:"id"`
	Roles           []string                `json:"roles"`
	AccessLevel     string                  `json:"accessLevel"`
	AccessStartTime string                  `json:"accessStartTime"`
	AccessEndTime   string                  `json:"accessEndTime"`
	PageAccess      sessiontypes.PageAccess `json:"pageAccess"`
	Version         string                  `json:"-"`
}

// StatusUpdate is the body of an approval decision. Version, when set, is sent as If-Match.
type StatusUpdate struct {
	UserID  string              `json:"userId"`
	Status  sessiontypes.Status `json:"status"`
	Version string              `json:"-"`
}

type deleteRequest struct {
	ID string `json:"id"`
}
