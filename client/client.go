// Package client talks to the auction service: it encrypts credentials for the
// service key, signs every protected request with the caller's key and refuses
// any response whose signature does not verify against the service key.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"secured-auction/internal/security"
)

// ErrBadResponseSignature is returned when a response is not signed by the service key
var ErrBadResponseSignature = errors.New("client: response signature does not verify")

// APIError is the service's error body
type APIError struct {
	HTTPStatus int    `json:"-"`
	Status     string `json:"status"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// Client is safe for sequential use; Login stores the bearer token on it
type Client struct {
	baseURL   string
	http      *http.Client
	keys      *security.KeyStore
	serverKey *security.PublicKey
	token     string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithServerKey pins the service key instead of fetching it
func WithServerKey(pub security.PublicKey) Option {
	return func(c *Client) { c.serverKey = &pub }
}

// New creates a client that signs with keys
func New(baseURL string, keys *security.KeyStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		keys:    keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token from the last successful login
func (c *Client) Token() string {
	return c.token
}

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) {
	c.token = token
}

// ServerKey returns the pinned service key, fetching it on first use. A fetched key
// must sign its own announcement.
func (c *Client) ServerKey(ctx context.Context) (security.PublicKey, error) {
	if c.serverKey != nil {
		return *c.serverKey, nil
	}

	env, err := c.roundTrip(ctx, http.MethodGet, "/auth/public-key", nil, false)
	if err != nil {
		return security.PublicKey{}, err
	}
	var announced struct {
		E string `json:"e"`
		N string `json:"n"`
	}
	if err := json.Unmarshal([]byte(env.Message), &announced); err != nil {
		return security.PublicKey{}, fmt.Errorf("client: decode public key: %w", err)
	}
	pub, err := security.ParsePublicKey(announced.E, announced.N)
	if err != nil {
		return security.PublicKey{}, fmt.Errorf("client: %w", err)
	}
	if !env.Valid(pub) {
		return security.PublicKey{}, ErrBadResponseSignature
	}
	c.serverKey = &pub
	return pub, nil
}

// call sends body (nil for no body) and returns the verified response message
func (c *Client) call(ctx context.Context, method, path string, body any, withToken bool, out any) error {
	pub, err := c.ServerKey(ctx)
	if err != nil {
		return err
	}
	env, err := c.roundTrip(ctx, method, path, body, withToken)
	if err != nil {
		return err
	}
	if !env.Valid(pub) {
		return ErrBadResponseSignature
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(env.Message), out); err != nil {
		return fmt.Errorf("client: decode %s response: %w", path, err)
	}
	return nil
}

// callSigned wraps msg in an envelope signed with the caller's key
func (c *Client) callSigned(ctx context.Context, path string, msg any, out any) error {
	env, err := c.keys.Seal(msg)
	if err != nil {
		return fmt.Errorf("client: sign %s request: %w", path, err)
	}
	return c.call(ctx, http.MethodPost, path, env, true, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, withToken bool) (security.Envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return security.Envelope{}, fmt.Errorf("client: encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return security.Envelope{}, fmt.Errorf("client: build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withToken && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return security.Envelope{}, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return security.Envelope{}, fmt.Errorf("client: read %s response: %w", path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Status != "ERROR" {
			return security.Envelope{}, fmt.Errorf("client: %s %s: unexpected status %d", method, path, resp.StatusCode)
		}
		return security.Envelope{}, apiErr
	}

	var env security.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return security.Envelope{}, fmt.Errorf("client: decode %s envelope: %w", path, err)
	}
	return env, nil
}
