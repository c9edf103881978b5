package identity

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
)

const defaultTimeout = 10 * time.Second

// ClientConfig configures the HTTP identity-provider client.
type ClientConfig struct {
	// BaseURL is the root of the provider's auth API, e.g. https://auth.example.com/auth/v1.
	BaseURL string
	// ServiceKey authorises administrative operations.
	ServiceKey string
	// AnonKey is sent as the apikey header on every call.
	AnonKey string
	// Timeout bounds each remote call. Defaults to 10s.
	Timeout time.Duration
	// HTTPClient overrides the transport, primarily for tests.
	HTTPClient *http.Client
}

// Client talks to a GoTrue-compatible identity provider over HTTP.
type Client struct {
	baseURL    string
	serviceKey string
	anonKey    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient validates the configuration and builds a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("identity client: base url is required")
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, errors.New("identity client: service key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    base,
		serviceKey: cfg.ServiceKey,
		anonKey:    cfg.AnonKey,
		timeout:    timeout,
		httpClient: httpClient,
	}, nil
}

// account mirrors the provider's user payload; only the fields we read.
type accountPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type errorPayload struct {
	Message     string `json:"msg"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func (p errorPayload) text() string {
	for _, s := range []string{p.Message, p.Description, p.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// WhoAmI resolves the account behind a caller's bearer token. Any provider
// rejection is normalised to ErrInvalidToken.
func (c *Client) WhoAmI(ctx context.Context, token string) (*Account, error) {
	var payload accountPayload
	err := c.do(ctx, http.MethodGet, "/user", token, nil, &payload)
	if err != nil {
		var status *statusError
		if errors.As(err, &status) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, status.message)
		}
		return nil, fmt.Errorf("identity client: whoami: %w", err)
	}
	return &Account{Ref: payload.ID, LoginID: payload.Email}, nil
}

// GetByRef fetches an account by its provider reference.
func (c *Client) GetByRef(ctx context.Context, ref string) (*Account, error) {
	var payload accountPayload
	err := c.do(ctx, http.MethodGet, "/admin/users/"+url.PathEscape(ref), c.serviceKey, nil, &payload)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("get account %s", ref))
	}
	return &Account{Ref: payload.ID, LoginID: payload.Email}, nil
}

// UpdatePassword replaces the password on an existing account.
func (c *Client) UpdatePassword(ctx context.Context, ref, password string) error {
	body := map[string]any{"password": password}
	err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(ref), c.serviceKey, body, nil)
	if err != nil {
		return classify(err, fmt.Sprintf("update password for %s", ref))
	}
	return nil
}

// Create provisions a new account with the login pre-confirmed.
func (c *Client) Create(ctx context.Context, loginID, password string) (*Account, error) {
	body := map[string]any{
		"email":         loginID,
		"password":      password,
		"email_confirm": true,
	}

	var payload accountPayload
	err := c.do(ctx, http.MethodPost, "/admin/users", c.serviceKey, body, &payload)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("create account %s", loginID))
	}
	return &Account{Ref: payload.ID, LoginID: payload.Email}, nil
}

// ClearSoftDelete removes any soft-deletion marker from the account.
func (c *Client) ClearSoftDelete(ctx context.Context, ref string) error {
	body := map[string]any{"deleted_at": nil}
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(ref), c.serviceKey, body, nil); err != nil {
		return classify(err, fmt.Sprintf("clear soft delete for %s", ref))
	}
	return nil
}

// ClearBan lifts any ban window on the account.
func (c *Client) ClearBan(ctx context.Context, ref string) error {
	body := map[string]any{"ban_duration": "none"}
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(ref), c.serviceKey, body, nil); err != nil {
		return classify(err, fmt.Sprintf("clear ban for %s", ref))
	}
	return nil
}

// ClearExternalLoginOnly re-enables password login for accounts that were
// restricted to an external provider.
func (c *Client) ClearExternalLoginOnly(ctx context.Context, ref string) error {
	body := map[string]any{
		"app_metadata": map[string]any{
			"provider":  "email",
			"providers": []string{"email"},
		},
	}
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(ref), c.serviceKey, body, nil); err != nil {
		return classify(err, fmt.Sprintf("clear external login for %s", ref))
	}
	return nil
}

// statusError carries the provider's HTTP status for classification.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("provider returned status %d", e.status)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.status, e.message)
}

// classify maps provider status codes onto the service's error classes.
// Unrecognised failures keep their cause so they propagate as internal errors.
func classify(err error, op string) error {
	var status *statusError
	if !errors.As(err, &status) {
		return fmt.Errorf("identity client: %s: %w", op, err)
	}

	switch {
	case status.status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrAccountNotFound, op)
	case status.status == http.StatusConflict,
		status.status == http.StatusUnprocessableEntity && looksLikeDuplicate(status.message),
		status.status == http.StatusBadRequest && looksLikeDuplicate(status.message):
		return fmt.Errorf("%w: %s", ErrIdentifierConflict, op)
	default:
		return fmt.Errorf("identity client: %s: %w", op, status)
	}
}

func looksLikeDuplicate(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "already") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "exists")
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload errorPayload
		_ = json.Unmarshal(data, &payload)
		return &statusError{status: resp.StatusCode, message: payload.text()}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
