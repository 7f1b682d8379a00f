// Package emailjs provides a client for the EmailJS REST send API.
package emailjs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client sends templated email through EmailJS.
type Client interface {
	// Send renders templateID with params and returns the response body
	// EmailJS answers with ("OK" on success).
	Send(ctx context.Context, templateID string, params map[string]string) (string, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("emailjs: status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Option configures the EmailJS client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPrivateKey sets the account access token required when the EmailJS
// account disallows browser-less calls without one.
func WithPrivateKey(key string) Option {
	return func(c *httpClient) {
		c.privateKey = key
	}
}

type httpClient struct {
	serviceID  string
	publicKey  string
	privateKey string
	baseURL    string
	http       *http.Client
}

// NewClient creates a new EmailJS client for one email service.
func NewClient(serviceID, publicKey string, opts ...Option) Client {
	c := &httpClient{
		serviceID: serviceID,
		publicKey: publicKey,
		baseURL:   "https://api.emailjs.com",
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
	AccessToken    string            `json:"accessToken,omitempty"`
}

func (c *httpClient) Send(ctx context.Context, templateID string, params map[string]string) (string, error) {
	if templateID == "" {
		return "", eris.New("emailjs: template id is required")
	}
	body, err := json.Marshal(sendRequest{
		ServiceID:      c.serviceID,
		TemplateID:     templateID,
		UserID:         c.publicKey,
		TemplateParams: params,
		AccessToken:    c.privateKey,
	})
	if err != nil {
		return "", eris.Wrap(err, "emailjs: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1.0/email/send", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "emailjs: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "emailjs: send")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", eris.Wrap(err, "emailjs: read response")
	}
	text := strings.TrimSpace(string(respBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: text}
	}
	return text, nil
}
