package httpclient

import (
	"fmt"
	"net/url"
	"time"
)

// Config configures the HTTP client with timeout, proxy, TLS, redirect,
// and protocol settings.
type Config struct {
	// Timeout is the total per-request timeout covering connect, send,
	// and body read. Default: 10s. Must be > 0.
	Timeout time.Duration

	// Proxy is an optional HTTP/HTTPS proxy URL. When empty, proxy
	// settings from the environment are used.
	Proxy string

	// VerifyTLS enables TLS peer verification.
	// Default: false (peers are not verified).
	VerifyTLS bool

	// FollowRedirect enables redirect following, limited to 10 hops.
	// When false, redirect responses are surfaced directly.
	FollowRedirect bool

	// HTTP2 prefers HTTP/2 via ALPN. When false the client negotiates
	// HTTP/1.1 only.
	HTTP2 bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		VerifyTLS:      false,
		FollowRedirect: false,
		HTTP2:          false,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.Proxy != "" {
		u, err := url.Parse(c.Proxy)
		if err != nil {
			return fmt.Errorf("invalid proxy URL %q: %w", c.Proxy, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("proxy URL %q must include scheme and host", c.Proxy)
		}
	}

	return nil
}
