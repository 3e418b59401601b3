package accessgate

import (
	"net/http"
)

// Handlers is the HTTP surface of the portal.
type Handlers interface {
	Login() http.HandlerFunc
	Callback() http.HandlerFunc
	RefreshStatus() http.HandlerFunc
	Status() http.HandlerFunc
	SignOut() http.HandlerFunc
	ListUsers() http.HandlerFunc
	UpdateUserAccess() http.HandlerFunc
	UpdateUserStatus() http.HandlerFunc
	DeleteUser() http.HandlerFunc
	Proxy() http.HandlerFunc
	StartSession(next http.Handler) http.Handler
	RequireContent(next http.Handler) http.Handler
	RequireAdministrator(next http.Handler) http.Handler
	SetXSRFToken(next http.Handler) http.Handler
	ValidateXSRFToken(next http.Handler) http.Handler
}
