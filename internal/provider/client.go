// Package provider talks to the Google Maps Platform on behalf of a user.
// Each Client is bound to one user's API key.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	requestTimeout = 10 * time.Second
	shortTimeout   = 5 * time.Second
	maxBodySize    = 8 << 20
)

// ErrNoAPIKey is returned when the user has not configured a key.
var ErrNoAPIKey = errors.New("google maps api key not configured")

// Config holds provider endpoints. Empty URLs fall back to Google's.
type Config struct {
	PlacesURL  string
	GeocodeURL string
	RoutesURL  string
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.PlacesURL == "" {
		c.PlacesURL = "https://places.googleapis.com"
	}
	if c.GeocodeURL == "" {
		c.GeocodeURL = "https://maps.googleapis.com"
	}
	if c.RoutesURL == "" {
		c.RoutesURL = "https://routes.googleapis.com"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	return c
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Message)
}

type Client struct {
	cfg    Config
	apiKey string
	logger *slog.Logger
}

// New returns a client for apiKey, or ErrNoAPIKey when it is empty.
func New(cfg Config, apiKey string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return &Client{cfg: cfg.withDefaults(), apiKey: apiKey, logger: logger}, nil
}

type request struct {
	method    string
	url       string
	body      any
	fieldMask string
	timeout   time.Duration
}

// do sends req and returns the decoded JSON body.
func (c *Client) do(ctx context.Context, req request) (gjson.Result, error) {
	timeout := req.timeout
	if timeout == 0 {
		timeout = requestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	if req.fieldMask != "" {
		httpReq.Header.Set("X-Goog-FieldMask", req.fieldMask)
	}

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := "Request failed"
		if m := gjson.GetBytes(data, "error.message"); m.Exists() && m.String() != "" {
			msg = m.String()
		}
		return gjson.Result{}, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, errors.New("decode provider response: invalid json")
	}
	return gjson.ParseBytes(data), nil
}
