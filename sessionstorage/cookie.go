package sessionstorage

import (
	"context"
	"maps"
	"net/http"
	"sync"

	"github.com/cccteam/accessgate/internal/cookie"
	"github.com/cccteam/ccc"
	"github.com/go-playground/errors/v5"
)

// keySessionID binds a cookie mirror to the session ID of the auth cookie. It is never
// returned by Load.
const keySessionID = "vm_sid"

// CookieKV keeps the mirror in encrypted cookies. It is bound to one request and its
// response; values written during the request are visible to later reads of the same request.
// A mirror written for another session ID reads as empty.
type CookieKV struct {
	cookies   cookie.Handler
	w         http.ResponseWriter
	r         *http.Request
	sessionID ccc.UUID

	mu     sync.Mutex
	loaded bool
	values map[string]string
}

// NewCookieKV returns a KV for sessionID reading from r and writing to w.
func NewCookieKV(cookies cookie.Handler, w http.ResponseWriter, r *http.Request, sessionID ccc.UUID) *CookieKV {
	return &CookieKV{cookies: cookies, w: w, r: r, sessionID: sessionID}
}

func (c *CookieKV) Load(_ context.Context, keys ...string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.load()

	return pick(maps.Clone(c.values), keys), nil
}

func (c *CookieKV) Save(_ context.Context, values map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.load()
	next := maps.Clone(c.values)
	maps.Copy(next, values)

	if err := c.write(next); err != nil {
		return err
	}
	c.values = next

	return nil
}

func (c *CookieKV) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.load()
	next := maps.Clone(c.values)
	for _, k := range keys {
		delete(next, k)
	}

	if len(next) == 0 {
		c.cookies.DeleteMirrorCookie(c.w, c.r)
	} else if err := c.write(next); err != nil {
		return err
	}
	c.values = next

	return nil
}

func (c *CookieKV) write(values map[string]string) error {
	out := maps.Clone(values)
	out[keySessionID] = c.sessionID.String()

	if err := c.cookies.WriteMirrorCookie(c.w, c.r, out); err != nil {
		return errors.Wrap(err, "cookie.Handler.WriteMirrorCookie()")
	}

	return nil
}

func (c *CookieKV) load() {
	if c.loaded {
		return
	}
	c.loaded = true

	values, found := c.cookies.ReadMirrorCookie(c.r)
	if !found || values[keySessionID] != c.sessionID.String() {
		values = make(map[string]string)
	}
	delete(values, keySessionID)
	c.values = values
}
