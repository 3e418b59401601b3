package cookie

import (
	"net/http"
	"time"

	"github.com/go-playground/errors/v5"
)

const (
	// OIDCCookieName is the name of the cookie carrying state across the OIDC redirect
	OIDCCookieName = "OIDC"

	// OIDCCookieLife is the lifetime of the OIDC flow cookie
	OIDCCookieLife = 10 * time.Minute

	// OIDCState is the key used to store the OAuth2 state parameter
	OIDCState Key = "state"

	// OIDCPkceVerifier is the key used to store the PKCE verifier
	OIDCPkceVerifier Key = "pkceVerifier"

	// ReturnURL is the key used to store the URL to return to after sign in
	ReturnURL Key = "returnURL"
)

// Values holds the values of the OIDC flow cookie.
type Values map[Key]string

// NewValues returns an empty Values.
func NewValues() Values {
	return make(Values)
}

// Set sets key to value and returns v for chaining.
func (v Values) Set(key Key, value string) Values {
	v[key] = value

	return v
}

// Get returns the value of key.
func (v Values) Get(key Key) string {
	return v[key]
}

// WriteOidcCookie writes the OIDC flow cookie.
func (c *Client) WriteOidcCookie(w http.ResponseWriter, cval Values) error {
	encoded, err := c.secureCookie.Encode(OIDCCookieName, cval)
	if err != nil {
		return errors.Wrap(err, "securecookie.Encode()")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     OIDCCookieName,
		Expires:  time.Now().Add(OIDCCookieLife),
		Value:    encoded,
		Path:     "/",
		Domain:   c.domain,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// ReadOidcCookie returns the OIDC flow cookie. A missing cookie is not an error.
func (c *Client) ReadOidcCookie(r *http.Request) (Values, bool, error) {
	cookie, err := r.Cookie(OIDCCookieName)
	if err != nil {
		return nil, false, nil
	}

	cval := NewValues()
	if err := c.secureCookie.Decode(OIDCCookieName, cookie.Value, &cval); err != nil {
		return nil, false, errors.Wrap(err, "securecookie.Decode()")
	}

	return cval, true, nil
}

// DeleteOidcCookie expires the OIDC flow cookie.
func (c *Client) DeleteOidcCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     OIDCCookieName,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		Domain:   c.domain,
		Secure:   c.secure,
		HttpOnly: true,
	})
}
