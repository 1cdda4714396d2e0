// Package httpclient talks to the OptiFlow backend. Every request goes through
// a Gateway, which owns bearer attachment and 401 handling; the API types in
// this package never touch the token themselves except where an operation
// has to present a token that is not stored yet.
package httpclient

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

	"github.com/optiflow/optiflow/internal/core/domain"
)

// Client is the low-level JSON client shared by the API types.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. httpClient should already carry a
// Gateway as its transport; see NewHTTPClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// NewHTTPClient wraps the default transport with gw and applies timeout.
func NewHTTPClient(gw *Gateway, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: gw,
		Timeout:   timeout,
	}
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

type requestOption func(*http.Request)

// withBearer presents token explicitly, bypassing the stored one.
func withBearer(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withQuery(q url.Values) requestOption {
	return func(r *http.Request) {
		if len(q) > 0 {
			r.URL.RawQuery = q.Encode()
		}
	}
}

// doRequest performs a JSON request against the backend.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, opts ...requestOption) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// doForm posts an application/x-www-form-urlencoded body.
func (c *Client) doForm(ctx context.Context, path string, form url.Values, opts ...requestOption) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return resp, nil
}

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// UserMessage is the backend's own explanation, suitable for display.
func (e *APIError) UserMessage() string { return e.Message }

// Unwrap maps the status onto the domain sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrValidation
	}
	return nil
}

// errorResponse covers FastAPI's {"detail"} as well as {"error"}/{"message"}.
type errorResponse struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// validationIssue is one entry of FastAPI's 422 detail list.
type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func (r errorResponse) text() string {
	if len(r.Detail) > 0 {
		var s string
		if err := json.Unmarshal(r.Detail, &s); err == nil && s != "" {
			return s
		}
		var issues []validationIssue
		if err := json.Unmarshal(r.Detail, &issues); err == nil && len(issues) > 0 {
			msgs := make([]string, 0, len(issues))
			for _, is := range issues {
				if len(is.Loc) > 0 {
					msgs = append(msgs, fmt.Sprintf("%v: %s", is.Loc[len(is.Loc)-1], is.Msg))
				} else {
					msgs = append(msgs, is.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}

// parseResponse decodes a 2xx body into target or turns anything else into
// an *APIError. The body is always closed.
func parseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			apiErr.Message = errResp.text()
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if target == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
