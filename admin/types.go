package admin

import (
	"github.com/cccteam/accessgate/sessiontypes"
)

// AccessChange describes a change to a user's role, access level, window and page access.
// StartTime and EndTime are wall clock HH:MM values in the administrator's location.
type AccessChange struct {
	UserID      string                   `json:"id" validate:"required"`
	Role        sessiontypes.Role        `json:"role" validate:"required,oneof=ADMINISTRATOR DEVELOPER VIEWER"`
	AccessLevel sessiontypes.AccessLevel `json:"accessLevel" validate:"omitempty,oneof=full partial view-only"`
	StartTime   string                   `json:"accessStartTime" validate:"omitempty,clock"`
	EndTime     string                   `json:"accessEndTime" validate:"omitempty,clock"`
	PageAccess  sessiontypes.PageAccess  `json:"pageAccess" validate:"omitempty,dive,keys,startswith=/,endkeys,eq=full"`
	Version     string                   `json:"version"`
}

// StatusChange records an approval decision. A user can not be returned to PENDING.
type StatusChange struct {
	UserID  string              `json:"userId" validate:"required"`
	Status  sessiontypes.Status `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Version string              `json:"version"`
}

// UserView is a user record with its window rendered in the administrator's location.
type UserView struct {
	ID              string                   `json:"id"`
	Email           string                   `json:"email"`
	Name            string                   `json:"name"`
	Status          sessiontypes.Status      `json:"status"`
	Role            sessiontypes.Role        `json:"role"`
	AccessLevel     sessiontypes.AccessLevel `json:"accessLevel"`
	AccessStartTime string                   `json:"accessStartTime"`
	AccessEndTime   string                   `json:"accessEndTime"`
	LocalStartTime  string                   `json:"localStartTime"`
	LocalEndTime    string                   `json:"localEndTime"`
	PageAccess      sessiontypes.PageAccess  `json:"pageAccess"`
	Version         string                   `json:"version,omitempty"`
}
