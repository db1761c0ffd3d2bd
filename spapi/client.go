// Package spapi is a typed client for the fulfillment network's inbound
// shipment REST API. Every request is signed; responses are decoded into the
// types in types.go at the boundary.
package spapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zoobzio/clockz"

	"inboundcore/sigv4"
)

const (
	basePath       = "/inbound/fba/2024-03-20"
	signingService = "execute-api"
)

// CredentialSource supplies the signing keys and access token for one call.
type CredentialSource interface {
	SigningCredentials(ctx context.Context) (sigv4.Credentials, string, error)
}

type Client struct {
	baseURL    string
	host       string
	region     string
	creds      CredentialSource
	clock      clockz.Clock
	httpClient *http.Client
}

func NewClient(endpoint, region string, timeout time.Duration, creds CredentialSource) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("spapi endpoint: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("spapi endpoint %q has no host", endpoint)
	}
	return &Client{
		baseURL: strings.TrimRight(endpoint, "/"),
		host:    u.Host,
		region:  region,
		creds:   creds,
		clock:   clockz.RealClock,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// WithClock replaces the clock used for signing timestamps.
func (c *Client) WithClock(clock clockz.Clock) *Client {
	c.clock = clock
	return c
}

// Host returns the API host the client signs for.
func (c *Client) Host() string { return c.host }

// APIError is a non-2xx upstream response.
type APIError struct {
	Method   string
	Path     string
	Status   int
	Body     string
	Problems []Problem
}

func (e *APIError) Error() string {
	if len(e.Problems) > 0 {
		p := e.Problems[0]
		return fmt.Sprintf("spapi %s %s: HTTP %d: %s: %s", e.Method, e.Path, e.Status, p.Code, p.Message)
	}
	return fmt.Sprintf("spapi %s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// TransportError is a request that never got an HTTP answer: a refused
// or reset connection, a DNS failure or a client timeout.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("spapi %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Text joins every problem message and detail with the raw body, for
// classification.
func (e *APIError) Text() string {
	var b strings.Builder
	for _, p := range e.Problems {
		b.WriteString(p.Code)
		b.WriteByte(' ')
		b.WriteString(p.Message)
		b.WriteByte(' ')
		b.WriteString(p.Details)
		b.WriteByte('\n')
	}
	b.WriteString(e.Body)
	return b.String()
}

// IsTransient reports whether err is an upstream 5xx, a throttling response
// or a transport failure worth retrying.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

func (c *Client) put(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, result)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("spapi marshal: %w", err)
		}
		payload = data
	}

	creds, token, err := c.creds.SigningCredentials(ctx)
	if err != nil {
		return fmt.Errorf("spapi credentials: %w", err)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + sigv4.CanonicalQuery(query)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("spapi %s %s: %w", method, path, err)
	}
	headers := sigv4.Sign(sigv4.Request{
		Method:  method,
		Host:    c.host,
		Path:    path,
		Query:   query,
		Body:    payload,
		Region:  c.region,
		Service: signingService,
	}, creds, token, c.clock.Now())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A cancelled caller is not an upstream failure.
		if ctx.Err() != nil {
			return fmt.Errorf("spapi %s %s: %w", method, path, err)
		}
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()
	return c.decode(method, path, resp, result)
}

func (c *Client) decode(method, path string, resp *http.Response, result any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("spapi read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(data)}
		var eb errorsBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Problems = eb.Errors
		}
		return apiErr
	}
	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("spapi decode %s: %w", path, err)
		}
	}
	return nil
}

func planPath(planID string, parts ...string) string {
	p := basePath + "/inboundPlans/" + url.PathEscape(planID)
	for _, s := range parts {
		p += "/" + s
	}
	return p
}
