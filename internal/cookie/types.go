package cookie

import (
	"time"

	"github.com/cccteam/ccc"
)

// Key is a key stored in a secure cookie value.
type Key string

func (k Key) String() string {
	return string(k)
}

const (
	// SessionID is the key used to store the SessionID in the auth cookie
	SessionID Key = "sessionID"

	// SameSiteStrict is the key used to store the sameSiteStrict cookie setting
	SameSiteStrict Key = "sameSiteStrict"

	// XSRFSessionID is the key used to bind an XSRF token to a session
	XSRFSessionID Key = "sessionID"

	// XSRFTokenExpiration is the key used to store the XSRF token expiration
	XSRFTokenExpiration Key = "expiration"
)

const (
	// AuthCookieName is the default name of the cookie holding the session ID
	AuthCookieName = "auth"

	// MirrorCookieName is the default name of the cookie holding a client side session mirror
	MirrorCookieName = "vm_session"

	// MirrorChunkSize is the largest value written to one mirror cookie, leaving room for
	// the name and attributes within the 4096 bytes browsers keep per cookie
	MirrorChunkSize = 3800

	// MaxMirrorChunks is the most cookies a session mirror is split over
	MaxMirrorChunks = 8

	// XSRFCookieName is the cookie name of the XSRF Token Cookie
	XSRFCookieName = "XSRF-TOKEN"

	// XSRFHeaderName is the header name of the XSRF Token
	XSRFHeaderName = "X-XSRF-TOKEN"

	// XSRFCookieLife is the lifetime of the XSRF Token Cookie
	XSRFCookieLife = time.Hour

	// XSRFReWriteWindow is how close to expiry the XSRF Token Cookie is rewritten
	XSRFReWriteWindow = 5 * time.Minute
)

// chunkCountSep separates the chunk count from the first chunk. It is outside the base64
// alphabet of securecookie values.
const chunkCountSep = "."

// ValidSessionID checks that the sessionID is a valid uuid
func ValidSessionID(sessionID string) (ccc.UUID, bool) {
	sessionUUID, err := ccc.UUIDFromString(sessionID)
	if err != nil {
		return ccc.NilUUID, false
	}

	return sessionUUID, true
}
