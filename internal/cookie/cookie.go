// Package cookie reads and writes the signed and encrypted cookies used by the portal.
package cookie

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cccteam/ccc"
	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/gorilla/securecookie"
)

// Client reads and writes the auth, mirror and XSRF cookies.
type Client struct {
	secureCookie     *securecookie.SecureCookie
	cookieName       string
	mirrorCookieName string
	domain           string
	secure           bool
}

// NewClient returns a Client using secureCookie for encoding.
func NewClient(secureCookie *securecookie.SecureCookie, options ...Option) *Client {
	c := &Client{
		secureCookie:     secureCookie,
		cookieName:       AuthCookieName,
		mirrorCookieName: MirrorCookieName,
		secure:           true,
	}
	for _, opt := range options {
		opt(c)
	}

	return c
}

// NewAuthCookie writes a new auth cookie for sessionID.
func (c *Client) NewAuthCookie(w http.ResponseWriter, sameSiteStrict bool, sessionID ccc.UUID) (map[Key]string, error) {
	cval := map[Key]string{
		SessionID: sessionID.String(),
	}

	if err := c.WriteAuthCookie(w, sameSiteStrict, cval); err != nil {
		return nil, errors.Wrap(err, "Client.WriteAuthCookie()")
	}

	return cval, nil
}

// ReadAuthCookie returns the decoded auth cookie.
func (c *Client) ReadAuthCookie(r *http.Request) (map[Key]string, bool) {
	cval := make(map[Key]string)

	cookie, err := r.Cookie(c.cookieName)
	if err != nil {
		return cval, false
	}
	if err := c.secureCookie.Decode(c.cookieName, cookie.Value, &cval); err != nil {
		logger.Req(r).Error(errors.Wrap(err, "securecookie.Decode()"))

		return cval, false
	}

	return cval, true
}

// WriteAuthCookie encodes cval into the auth cookie.
func (c *Client) WriteAuthCookie(w http.ResponseWriter, sameSiteStrict bool, cval map[Key]string) error {
	cval[SameSiteStrict] = strconv.FormatBool(sameSiteStrict)
	encoded, err := c.secureCookie.Encode(c.cookieName, cval)
	if err != nil {
		return errors.Wrap(err, "securecookie.Encode()")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   c.domain,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: sameSite(sameSiteStrict),
	})

	return nil
}

// ReadMirrorCookie returns the client side session mirror.
func (c *Client) ReadMirrorCookie(r *http.Request) (map[string]string, bool) {
	encoded, ok := c.readChunks(r)
	if !ok {
		return nil, false
	}

	values := make(map[string]string)
	if err := c.secureCookie.Decode(c.mirrorCookieName, encoded, &values); err != nil {
		logger.Req(r).Error(errors.Wrap(err, "securecookie.Decode()"))

		return nil, false
	}

	return values, true
}

// WriteMirrorCookie replaces the client side session mirror with values. The values are
// encoded together and split over as many cookies as the encoded size needs, so they are
// written and cleared together.
func (c *Client) WriteMirrorCookie(w http.ResponseWriter, r *http.Request, values map[string]string) error {
	encoded, err := c.secureCookie.Encode(c.mirrorCookieName, values)
	if err != nil {
		return errors.Wrap(err, "securecookie.Encode()")
	}

	chunks := split(encoded, MirrorChunkSize)
	if len(chunks) > MaxMirrorChunks {
		return errors.Newf("session mirror needs %d cookies, limit is %d", len(chunks), MaxMirrorChunks)
	}
	chunks[0] = strconv.Itoa(len(chunks)) + chunkCountSep + chunks[0]

	for i, chunk := range chunks {
		http.SetCookie(w, &http.Cookie{
			Name:     c.chunkName(i),
			Value:    chunk,
			Path:     "/",
			Domain:   c.domain,
			Secure:   c.secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	c.expireChunks(w, r, len(chunks))

	return nil
}

// DeleteMirrorCookie expires the client side session mirror.
func (c *Client) DeleteMirrorCookie(w http.ResponseWriter, r *http.Request) {
	c.expire(w, c.mirrorCookieName)
	c.expireChunks(w, r, 1)
}

func (c *Client) readChunks(r *http.Request) (string, bool) {
	first, err := r.Cookie(c.mirrorCookieName)
	if err != nil {
		return "", false
	}

	count, chunk, ok := strings.Cut(first.Value, chunkCountSep)
	if !ok {
		return "", false
	}
	n, err := strconv.Atoi(count)
	if err != nil || n < 1 || n > MaxMirrorChunks {
		return "", false
	}

	var b strings.Builder
	b.WriteString(chunk)
	for i := 1; i < n; i++ {
		next, err := r.Cookie(c.chunkName(i))
		if err != nil {
			return "", false
		}
		b.WriteString(next.Value)
	}

	return b.String(), true
}

// expireChunks expires the chunk cookies r carries from index from on.
func (c *Client) expireChunks(w http.ResponseWriter, r *http.Request, from int) {
	if r == nil {
		return
	}
	for i := from; i < MaxMirrorChunks; i++ {
		if _, err := r.Cookie(c.chunkName(i)); err == nil {
			c.expire(w, c.chunkName(i))
		}
	}
}

func (c *Client) chunkName(i int) string {
	if i == 0 {
		return c.mirrorCookieName
	}

	return c.mirrorCookieName + "_" + strconv.Itoa(i)
}

func (c *Client) expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   c.secure,
		HttpOnly: true,
	})
}

func split(s string, size int) []string {
	chunks := make([]string, 0, len(s)/size+1)
	for len(s) > size {
		chunks = append(chunks, s[:size])
		s = s[size:]
	}

	return append(chunks, s)
}

// SetXSRFTokenCookie sets the cookie if it does not exist and updates the cookie when it is close to expiration.
func (c *Client) SetXSRFTokenCookie(w http.ResponseWriter, r *http.Request, sessionID ccc.UUID, cookieExpiration time.Duration) (set bool) {
	cval, found := c.readXSRFCookie(r)
	if found && sessionID.String() == cval[XSRFSessionID] {
		exp, err := time.Parse(time.RFC3339, cval[XSRFTokenExpiration])
		if err != nil {
			logger.Req(r).Error(errors.Wrap(err, "time.Parse()"))
		} else if time.Now().Before(exp.Add(-XSRFReWriteWindow)) {
			return false
		}
	}

	cval = map[Key]string{
		XSRFSessionID:       sessionID.String(),
		XSRFTokenExpiration: time.Now().Add(cookieExpiration).Format(time.RFC3339),
	}

	encoded, err := c.secureCookie.Encode(XSRFCookieName, cval)
	if err != nil {
		logger.Req(r).Error(errors.Wrap(err, "securecookie.Encode()"))

		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     XSRFCookieName,
		Expires:  time.Now().Add(cookieExpiration),
		Value:    encoded,
		Path:     "/",
		Domain:   c.domain,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})

	return true
}

// HasValidXSRFToken reports if the request carries an unexpired XSRF cookie for sessionID
// and a matching XSRF header.
func (c *Client) HasValidXSRFToken(r *http.Request, sessionID ccc.UUID) bool {
	cval, found := c.readXSRFCookie(r)
	if !found {
		return false
	}
	exp, err := time.Parse(time.RFC3339, cval[XSRFTokenExpiration])
	if err != nil || time.Now().After(exp) {
		return false
	}
	if sessionID.String() != cval[XSRFSessionID] {
		return false
	}

	hval := make(map[Key]string)
	if err := c.secureCookie.Decode(XSRFCookieName, r.Header.Get(XSRFHeaderName), &hval); err != nil {
		return false
	}

	return hval[XSRFSessionID] == cval[XSRFSessionID]
}

func (c *Client) readXSRFCookie(r *http.Request) (map[Key]string, bool) {
	cookie, err := r.Cookie(XSRFCookieName)
	if err != nil {
		return nil, false
	}

	cval := make(map[Key]string)
	if err := c.secureCookie.Decode(XSRFCookieName, cookie.Value, &cval); err != nil {
		logger.Req(r).Error(errors.Wrap(err, "securecookie.Decode()"))

		return nil, false
	}

	return cval, true
}

func sameSite(strict bool) http.SameSite {
	if strict {
		return http.SameSiteStrictMode
	}

	return http.SameSiteLaxMode
}
