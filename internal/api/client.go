// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Configuration constants for the HTTP backend.
const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRetries is the number of retry attempts for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum backoff delay.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize caps response bodies. Record listings are small;
	// anything beyond this is a misbehaving server.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB
)

// sharedHTTPClient is the pooled transport for all portal requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// HTTP CLIENT
// =============================================================================

// Client is the HTTP implementation of Backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a portal client for the given base URL.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid portal URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("portal URL must be http or https, got %q", u.Scheme)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: sharedHTTPClient,
		maxRetries: DefaultMaxRetries,
	}, nil
}

// SetTimeout overrides the per-request timeout for this client. The
// shared transport (and its connection pool) is kept.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	hc := *sharedHTTPClient
	hc.Timeout = d
	c.httpClient = &hc
}

// errorBody is the portal's error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// doJSON performs one logical request with retries, decoding a 2xx body
// into out (out may be nil). Transport failures and 5xx responses are
// retried with exponential backoff; 4xx responses never are, they carry
// the server's decision.
func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue // transport error, retry
		}

		retry, err := c.handleResponse(resp, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// handleResponse consumes one response. The bool reports whether the
// failure is worth retrying.
func (c *Client) handleResponse(resp *http.Response, out any) (bool, error) {
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, MaxResponseSize)
	data, err := io.ReadAll(limited)
	if err != nil {
		return true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return false, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
		return false, nil
	}

	var eb errorBody
	_ = json.Unmarshal(data, &eb) // best effort; body may not be JSON

	apiErr := &APIError{Status: resp.StatusCode, Message: eb.Error}
	// 5xx is the server tripping over itself; give it another chance.
	return resp.StatusCode >= 500, apiErr
}

// =============================================================================
// BACKEND IMPLEMENTATION
// =============================================================================

// Login performs the first authentication factor.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	req := map[string]string{"username": username, "password": password}
	var res LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", "", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// VerifyOTP exchanges the pending username and code for a session.
func (c *Client) VerifyOTP(ctx context.Context, username, code string) (*AuthResult, error) {
	req := map[string]string{"username": username, "otp": code}
	var res AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/verify-otp", "", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me resolves a token into its identity.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var res struct {
		User User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/me", token, nil, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var res struct {
		VerificationToken string `json:"verificationToken"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/register", "", req, &res); err != nil {
		return "", err
	}
	return res.VerificationToken, nil
}

// VerifyRegistration activates an account.
func (c *Client) VerifyRegistration(ctx context.Context, username, token string) error {
	req := map[string]string{"username": username, "token": token}
	return c.doJSON(ctx, http.MethodPost, "/api/verify-registration", "", req, nil)
}

// ListRecords returns the records visible to the token's identity.
func (c *Client) ListRecords(ctx context.Context, token string) ([]Record, error) {
	var res struct {
		Records []Record `json:"records"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/records", token, nil, &res); err != nil {
		return nil, err
	}
	return res.Records, nil
}

// CreateRecord submits plaintext for server-side encryption and signing.
func (c *Client) CreateRecord(ctx context.Context, token string, req CreateRecordRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/records", token, req, nil)
}

// DecryptRecord asks the server to decrypt and verify one record.
func (c *Client) DecryptRecord(ctx context.Context, token, recordID string) (*DecryptResult, error) {
	var res DecryptResult
	path := "/api/records/" + url.PathEscape(recordID) + "/decrypt"
	if err := c.doJSON(ctx, http.MethodPost, path, token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListPatients returns the patient roster.
func (c *Client) ListPatients(ctx context.Context, token string) ([]User, error) {
	var res struct {
		Patients []User `json:"patients"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/patients", token, nil, &res); err != nil {
		return nil, err
	}
	return res.Patients, nil
}

// ListUsers returns all accounts.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var res struct {
		Users []User `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", token, nil, &res); err != nil {
		return nil, err
	}
	return res.Users, nil
}

// UnlockUser clears a lockout on an account.
func (c *Client) UnlockUser(ctx context.Context, token, userID string) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	path := "/api/users/" + url.PathEscape(userID) + "/unlock"
	if err := c.doJSON(ctx, http.MethodPost, path, token, nil, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// Ping reports whether the portal answers at all. Used by the status
// command; any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp.Body.Close()
	return nil
}

// interface guard
var _ Backend = (*Client)(nil)
