// Package line talks to the LINE Messaging API: replies, pushes and
// message content downloads.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

const (
	DefaultAPIBase     = "https://api.line.me"
	DefaultDataAPIBase = "https://api-data.line.me"
)

// APIError is a non-2xx answer from the Messaging API.
type APIError struct {
	StatusCode int
	Message    string
	Details    []APIErrorDetail
}

type APIErrorDetail struct {
	Message  string `json:"message"`
	Property string `json:"property"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("line api: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("line api: HTTP %d: %s", e.StatusCode, e.Message)
}

// parseAPIError builds an APIError from a response. Bodies that are not the
// documented JSON error shape are kept verbatim as the message.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	var payload struct {
		Message string           `json:"message"`
		Details []APIErrorDetail `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
		apiErr.Details = payload.Details
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if len(apiErr.Message) > 256 {
		apiErr.Message = apiErr.Message[:256]
	}
	return apiErr
}

// ClientConfig holds the credentials and endpoints for a Client.
type ClientConfig struct {
	AccessToken string
	APIBase     string
	DataAPIBase string
	// RateLimit caps outbound requests per second. Zero disables the limiter.
	RateLimit  float64
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is an authenticated Messaging API client shared by the dispatcher
// and the content fetcher.
type Client struct {
	token       string
	apiBase     string
	dataAPIBase string
	http        *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.DataAPIBase == "" {
		cfg.DataAPIBase = DefaultDataAPIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Client{
		token:       cfg.AccessToken,
		apiBase:     strings.TrimRight(cfg.APIBase, "/"),
		dataAPIBase: strings.TrimRight(cfg.DataAPIBase, "/"),
		http:        cfg.HTTPClient,
		logger:      cfg.Logger.With("component", "line"),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// HasToken reports whether an access token is configured.
func (c *Client) HasToken() bool { return c.token != "" }

// do sends an authenticated request. The caller owns the response body.
func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	return resp, nil
}

// postJSON sends payload to an api.line.me path and returns the status and
// body. Transport errors are returned as err; HTTP failures are not.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(data), "application/json")
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) contentURL(messageID, suffix string) string {
	return fmt.Sprintf("%s/v2/bot/message/%s/content%s", c.dataAPIBase, url.PathEscape(messageID), suffix)
}
