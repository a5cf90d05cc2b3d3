// Package docrouter is an HTTP client for the DocRouter document-processing
// API: document upload, OCR/LLM state tracking, prompt runs, and result
// retrieval.
package docrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// Sentinel errors for the docrouter package.
var (
	// ErrNotFound is returned when a document, tag, prompt, or result does
	// not exist.
	ErrNotFound = errors.New("not found")
)

// Document lifecycle states reported by the API.
const (
	StateUploaded      = "uploaded"
	StateOCRProcessing = "ocr_processing"
	StateOCRCompleted  = "ocr_completed"
	StateOCRFailed     = "ocr_failed"
	StateLLMProcessing = "llm_processing"
	StateLLMCompleted  = "llm_completed"
	StateLLMFailed     = "llm_failed"
)

// StateFailed reports whether a document state is a failure the caller may
// want to retry.
func StateFailed(state string) bool {
	return state == StateOCRFailed || state == StateLLMFailed
}

// Config configures a DocRouter client.
type Config struct {
	BaseURL  string
	OrgID    string
	APIToken string

	// Timeout per HTTP request (default 30s).
	Timeout time.Duration

	// Attempts is the number of tries per request for transient failures
	// (default 4).
	Attempts uint

	Logger *slog.Logger
}

// Client is a DocRouter HTTP client scoped to one organization.
type Client struct {
	baseURL    string
	orgID      string
	token      string
	attempts   uint
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a DocRouter client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("docrouter base URL is required")
	}
	if cfg.OrgID == "" {
		return nil, fmt.Errorf("docrouter organization ID is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 4
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		orgID:      cfg.OrgID,
		token:      cfg.APIToken,
		attempts:   attempts,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("component", "docrouter"),
	}, nil
}

// orgPath builds an organization-scoped API path.
func (c *Client) orgPath(parts ...string) string {
	return "/v0/orgs/" + c.orgID + "/" + strings.Join(parts, "/")
}

// doJSON performs an HTTP request with transient-failure retries and decodes
// the JSON response into out (when out is non-nil). Network errors and 5xx
// responses are retried; 404 maps to ErrNotFound and other 4xx responses
// fail immediately.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	return retry.Do(
		func() error {
			var reader io.Reader
			if bodyBytes != nil {
				reader = bytes.NewReader(bodyBytes)
			}
			req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if bodyBytes != nil {
				req.Header.Set("Content-Type", "application/json")
			}
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(fmt.Errorf("%s %s: %w", method, path, ErrNotFound))
			case resp.StatusCode >= 500:
				return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
			case resp.StatusCode >= 400:
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return retry.Unrecoverable(fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg))))
			}

			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug("retrying request", "method", method, "path", path, "attempt", n+1, "error", err)
		}),
	)
}
