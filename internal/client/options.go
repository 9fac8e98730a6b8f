package client

import (
	"net/http"
	"time"
)

// defaultTimeout mirrors the teacher's fixed *http.Client timeout, scaled up
// for payload uploads rather than order placement.
const defaultTimeout = 60 * time.Second

// Option configures a Client constructed with New. The client now carries
// many more optional knobs than the single-purpose clients it's grounded
// on, so functional options replace a flat constructor-argument list.
type Option func(*Client)

// WithHTTPClient overrides the default *http.Client (useful for tests and
// custom transports/proxies).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}
