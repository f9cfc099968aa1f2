// Package maps is a Google Maps Platform client covering geocoding, nearby
// place search, the distance matrix, autocomplete and place details.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nitesh/midpoint_service/internal/metrics"
)

const DefaultBaseURL = "https://maps.googleapis.com"

var (
	// ErrNoAPIKey is returned by every call when the client has no key configured.
	ErrNoAPIKey = errors.New("google maps api key is not configured")
	// ErrNotFound is returned when the API answers ZERO_RESULTS / NOT_FOUND.
	ErrNotFound = errors.New("no results")
)

// StatusError is a non-OK "status" field in an otherwise successful response.
type StatusError struct {
	Operation string
	Status    string
	Message   string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: api status %s: %s", e.Operation, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: api status %s", e.Operation, e.Status)
}

// Client talks to the Maps web service endpoints.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	logger  *zap.Logger
}

// NewClient creates a new client. If httpClient is nil, a default with timeout is used.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      httpClient,
		logger:  zap.NewNop(),
	}
}

// SetLogger replaces the no-op default logger.
func (c *Client) SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// getJSON issues a GET against path with params plus the key and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, operation, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: new request: %w", operation, err)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	lat := time.Since(start)
	metrics.CollaboratorDurationMs.WithLabelValues(operation).Observe(float64(lat.Milliseconds()))
	c.logger.Debug("maps request",
		zap.String("operation", operation),
		zap.Duration("latency", lat),
		zap.Error(err),
	)
	if err != nil {
		metrics.CollaboratorRequestsTotal.WithLabelValues(operation, "transport_error").Inc()
		return fmt.Errorf("%s: request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		metrics.CollaboratorRequestsTotal.WithLabelValues(operation, "read_error").Inc()
		return fmt.Errorf("%s: read body: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.CollaboratorRequestsTotal.WithLabelValues(operation, "http_"+strconv.Itoa(resp.StatusCode)).Inc()
		return fmt.Errorf("%s: status=%d body=%s", operation, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.CollaboratorRequestsTotal.WithLabelValues(operation, "decode_error").Inc()
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	metrics.CollaboratorRequestsTotal.WithLabelValues(operation, "ok").Inc()
	return nil
}

// checkStatus maps the API "status" field to an error.
func checkStatus(operation, status, message string) error {
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	default:
		return &StatusError{Operation: operation, Status: status, Message: message}
	}
}

func latLng(lat, lng float64) string {
	return fmt.Sprintf("%f,%f", lat, lng)
}
