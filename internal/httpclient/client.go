// Package httpclient provides the HTTP client used by all source adapters.
package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/jobrake/jobrake/errors"
)

const defaultMaxRedirects = 10

// maxResponseBytes caps how much of a response body is read. Job board pages
// and feeds are small; anything larger is truncated rather than buffered.
const maxResponseBytes = 10 << 20 // 10 MiB

// Client wraps http.Client with scheme validation, a redirect cap, and
// optional private-IP blocking for fetching configured board URLs.
type Client struct {
	*http.Client
	allowedSchemes []string
	maxRedirects   int
}

// Options configures optional Client behavior.
type Options struct {
	BlockPrivateIP bool     // refuse to dial RFC1918/loopback addresses
	MaxRedirects   *int     // nil = default 10
	AllowedSchemes []string // nil = http, https
}

// New creates a Client with the given request timeout and default options.
func New(timeout time.Duration) *Client {
	return NewWithOptions(timeout, Options{})
}

// NewWithOptions creates a Client with custom options.
func NewWithOptions(timeout time.Duration, opts Options) *Client {
	maxRedirects := defaultMaxRedirects
	if opts.MaxRedirects != nil {
		maxRedirects = *opts.MaxRedirects
	}

	allowedSchemes := []string{"http", "https"}
	if opts.AllowedSchemes != nil {
		allowedSchemes = opts.AllowedSchemes
	}

	client := &Client{
		Client: &http.Client{
			Timeout: timeout,
		},
		allowedSchemes: allowedSchemes,
		maxRedirects:   maxRedirects,
	}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= client.maxRedirects {
			return errors.Newf("stopped after %d redirects", client.maxRedirects)
		}
		if err := client.validateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	if opts.BlockPrivateIP {
		dialer := &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}
		client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, _, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, ip := range ips {
					if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
						return nil, errors.Newf("private IP address blocked: %s", ip)
					}
				}
				return dialer.DialContext(ctx, network, addr)
			},
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	return client
}

func (c *Client) validateURL(u *url.URL) error {
	for _, scheme := range c.allowedSchemes {
		if u.Scheme == scheme {
			return nil
		}
	}
	return errors.Newf("scheme %q not allowed", u.Scheme)
}

// Fetch performs a GET with the given headers and returns the body, HTTP
// status, and body size. Non-2xx statuses return the status alongside an
// error so callers can classify retryability.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string) (body []byte, status int, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "invalid URL %q", rawURL)
	}
	if err := c.validateURL(u); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "jobrake/1.0")
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "fetch %s", rawURL)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, errors.Wrapf(err, "read response from %s", rawURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, errors.Newf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	return body, resp.StatusCode, nil
}

// IsRetryableStatus reports whether an HTTP status should be retried.
// 5xx and 429 are transient; other 4xx are not.
func IsRetryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}
