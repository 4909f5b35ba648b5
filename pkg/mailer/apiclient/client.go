// Package apiclient is the HTTP layer shared by the JSON API transports.
// Every failure is reported as a *mailer.DeliveryError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/mailkit/pkg/mailer"
)

// maxErrorBody caps how much of a failed response is kept on the error.
const maxErrorBody = 4 << 10

// Client issues JSON POST requests to a provider API.
type Client struct {
	http     *http.Client
	provider string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithConnectTimeout caps connection establishment only; reading the
// response is not limited.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.DialContext = (&net.Dialer{Timeout: d, KeepAlive: 30 * time.Second}).DialContext
		c.http = &http.Client{Transport: tr}
	}
}

// New creates a client for the named provider.
func New(provider string, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{},
		provider: provider,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// PostJSON encodes payload and posts it to url with the given headers.
// Any 2xx status is success; everything else is a *mailer.DeliveryError.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return c.fail(0, "", fmt.Errorf("encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return c.fail(0, "", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(0, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return c.fail(resp.StatusCode, string(bytes.TrimSpace(data)), nil)
}

func (c *Client) fail(status int, body string, err error) *mailer.DeliveryError {
	return &mailer.DeliveryError{
		Provider:   c.provider,
		StatusCode: status,
		Body:       body,
		Err:        err,
	}
}
