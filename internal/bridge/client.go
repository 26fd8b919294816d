// Package bridge is the HTTP client for the Code Sergeant session service.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the loopback address the service listens on.
	DefaultBaseURL = "http://127.0.0.1:5050"

	// DefaultRequestTimeout bounds connect and time-to-first-byte.
	DefaultRequestTimeout = 10 * time.Second
	// DefaultResourceTimeout bounds the whole exchange including the body.
	DefaultResourceTimeout = 30 * time.Second

	maxBodyBytes = 4 << 20
)

// Client issues single requests against the service. It holds no mutable
// state besides its fixed configuration and is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// New constructs a client. Timeouts outside (0, default] are clamped to the
// defaults.
func New(baseURL string, requestTimeout, resourceTimeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, baseURL)
	}
	if requestTimeout <= 0 || requestTimeout > DefaultRequestTimeout {
		requestTimeout = DefaultRequestTimeout
	}
	if resourceTimeout <= 0 || resourceTimeout > DefaultResourceTimeout {
		resourceTimeout = DefaultResourceTimeout
	}
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: requestTimeout}).DialContext,
		ResponseHeaderTimeout: requestTimeout,
		TLSHandshakeTimeout:   requestTimeout,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: resourceTimeout, Transport: transport},
	}, nil
}

// BaseURL returns the configured service address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Get performs a GET and returns the response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Patch performs a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, path, body)
}

func (c *Client) resolve(path string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: path %q is not rooted", ErrInvalidAddress, path)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("%w: path %q must be relative", ErrInvalidAddress, path)
	}
	return c.base.ResolveReference(ref).String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = http.NoBody
	if method != http.MethodGet {
		payload := []byte("{}")
		if body != nil {
			payload, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s body: %w", path, err)
			}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Method: method, Path: path, Code: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

func errorMessage(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Error
}

func decode[T any](path string, data []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(data)) == 0 {
		return v, &DecodeError{Path: path, Err: fmt.Errorf("empty body")}
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, &DecodeError{Path: path, Err: err}
	}
	return v, nil
}
