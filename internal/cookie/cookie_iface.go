package cookie

import (
	"net/http"
	"time"

	"github.com/cccteam/ccc"
)

var _ Handler = &Client{}

// Handler Interface included for testability
type Handler interface {
	NewAuthCookie(w http.ResponseWriter, sameSiteStrict bool, sessionID ccc.UUID) (map[Key]string, error)
	ReadAuthCookie(r *http.Request) (map[Key]string, bool)
	WriteAuthCookie(w http.ResponseWriter, sameSiteStrict bool, cval map[Key]string) error
	ReadMirrorCookie(r *http.Request) (map[string]string, bool)
	WriteMirrorCookie(w http.ResponseWriter, r *http.Request, values map[string]string) error
	DeleteMirrorCookie(w http.ResponseWriter, r *http.Request)
	SetXSRFTokenCookie(w http.ResponseWriter, r *http.Request, sessionID ccc.UUID, cookieExpiration time.Duration) bool
	HasValidXSRFToken(r *http.Request, sessionID ccc.UUID) bool
	WriteOidcCookie(w http.ResponseWriter, cval Values) error
	ReadOidcCookie(r *http.Request) (Values, bool, error)
	DeleteOidcCookie(w http.ResponseWriter)
}
