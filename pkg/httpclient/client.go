// Package httpclient provides the HTTP client factory shared by every
// concurrent attempt of a batch run.
//
// The factory builds one *http.Client honoring the run policy:
//   - Per-attempt timeout covering connect, send, and body read
//   - Optional HTTP/HTTPS proxy
//   - TLS peer verification toggle (off by default)
//   - Redirect policy: none, or limited to 10 hops
//   - ALPN preference: HTTP/1.1, or HTTP/2 when requested
//
// Example usage:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.FollowRedirect = true
//	client, err := httpclient.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.Get("https://example.com")
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"
)

// maxRedirects caps redirect following when it is enabled.
const maxRedirects = 10

// New creates a new HTTP client with the given configuration.
// The returned client is safe for concurrent use and is shared by all
// in-flight attempts of a run.
func New(cfg Config) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
		},

		// Connection pooling settings
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,

		Proxy: http.ProxyFromEnvironment,
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if cfg.HTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, fmt.Errorf("configuring HTTP/2 transport: %w", err)
		}
	} else {
		// An empty TLSNextProto map disables the automatic h2 upgrade,
		// pinning the client to HTTP/1.1.
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}

	if cfg.FollowRedirect {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return client, nil
}
