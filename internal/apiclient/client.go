// Package apiclient is the single HTTP client used to talk to the remote
// calendar API. Every request carries the stored bearer token and every 401
// response tears the stored session down.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is used when no API URL is configured
const DefaultBaseURL = "http://localhost:8080"

// LoginRoute is where a 401 response sends the user
const LoginRoute = "/login"

const bearerPrefix = "Bearer "

// TokenStore is the part of session storage the client needs
type TokenStore interface {
	GetToken() (string, bool)
	RemoveToken()
}

// Navigator performs a full-page navigation
type Navigator interface {
	Navigate(path string)
}

// Response is a fully read API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Client represents an HTTP client for the calendar API
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
	navigator  Navigator
	logger     zerolog.Logger
}

// New creates a new API client. store and navigator may be nil, in which case
// no token is attached and 401 responses have no side effects.
func New(baseURL string, store TokenStore, navigator Navigator, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:     store,
		navigator: navigator,
		logger:    logger,
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a request with an optional JSON body. Non-2xx statuses are not
// errors; only transport failures are.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.beforeRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}
	c.afterResponse(req, out)

	return out, nil
}

// beforeRequest attaches the stored token
func (c *Client) beforeRequest(req *http.Request) {
	if c.store == nil {
		return
	}
	if token, ok := c.store.GetToken(); ok {
		req.Header.Set("Authorization", bearerPrefix+token)
	}
}

// afterResponse clears the session and sends the user to the login page on 401
func (c *Client) afterResponse(req *http.Request, resp *Response) {
	if resp.StatusCode != http.StatusUnauthorized {
		return
	}

	c.logger.Info().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Msg("API returned 401, clearing session")

	if c.store != nil {
		c.store.RemoveToken()
	}
	if c.navigator != nil {
		c.navigator.Navigate(LoginRoute)
	}
}
