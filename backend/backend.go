// Package backend is the HTTPS client for the authentication and user administration service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/ccc"
	"github.com/go-playground/errors/v5"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultExchangePath = "/auth/exchange"

	maxErrorBody = 64 << 10
)

// Client calls the backend service.
type Client struct {
	baseURL      *url.URL
	exchangePath string
	httpClient   *http.Client
	timeout      time.Duration
	now          func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request. (default: http.DefaultClient)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the deadline applied to each call. (default: 10s)
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithExchangePath sets the path of the exchange endpoint. (default: /auth/exchange)
func WithExchangePath(p string) Option {
	return func(c *Client) {
		c.exchangePath = p
	}
}

// WithClock sets the time source used for the exchange timestamp. (default: time.Now)
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New returns a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "url.Parse()")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("backend url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:      u,
		exchangePath: defaultExchangePath,
		httpClient:   http.DefaultClient,
		timeout:      defaultTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type call struct {
	op      string
	method  string
	path    string
	token   string
	version string
	body    any
	out     any
}

func (c *Client) do(ctx context.Context, cl call) error {
	ctx, span := ccc.StartTrace(ctx)
	defer span.End()

	ctx, cancel := context.WithTimeoutCause(ctx, c.timeout, autherr.ErrBackendUnreachable)
	defer cancel()

	var body io.Reader = http.NoBody
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return errors.Wrap(err, "json.Marshal()")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL.JoinPath(cl.path).String(), body)
	if err != nil {
		return errors.Wrap(err, "http.NewRequestWithContext()")
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	if cl.version != "" {
		req.Header.Set("If-Match", cl.version)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(context.Cause(ctx), autherr.ErrBackendUnreachable) {
			return errors.Wrapf(autherr.ErrBackendUnreachable, "%s: %v", cl.op, err)
		}

		return errors.Wrap(err, "http.Client.Do()")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &autherr.BackendError{Op: cl.op, StatusCode: resp.StatusCode, Message: detailMessage(raw)}
	}

	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		if errors.Is(context.Cause(ctx), autherr.ErrBackendUnreachable) {
			return errors.Wrapf(autherr.ErrBackendUnreachable, "%s: %v", cl.op, err)
		}

		return errors.Wrapf(err, "%s: json.Decoder.Decode()", cl.op)
	}

	return nil
}

// detailMessage extracts the backend's explanation from an error body. JSON bodies are
// searched for detail, message and error in that order. Anything else is returned as text.
func detailMessage(raw []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		for _, k := range []string{"detail", "message", "error"} {
			switch v := fields[k].(type) {
			case string:
				if v != "" {
					return v
				}
			case nil:
			default:
				if b, err := json.Marshal(v); err == nil {
					return string(b)
				}
			}
		}
	}

	return strings.TrimSpace(string(raw))
}
