package cookie

// Option defines a function signature for setting cookie client options.
type Option func(*Client)

// WithCookieName sets the cookie name for the auth cookie.
func WithCookieName(name string) Option {
	return Option(func(c *Client) {
		c.cookieName = name
	})
}

// WithMirrorCookieName sets the cookie name for the client side session mirror.
func WithMirrorCookieName(name string) Option {
	return Option(func(c *Client) {
		c.mirrorCookieName = name
	})
}

// WithCookieDomain sets the domain for the cookies.
func WithCookieDomain(domain string) Option {
	return Option(func(c *Client) {
		c.domain = domain
	})
}

// WithSecure sets the Secure attribute on the cookies. (default: true)
func WithSecure(secure bool) Option {
	return Option(func(c *Client) {
		c.secure = secure
	})
}
