package supabase

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

	"photorestore/internal/domain"
	"photorestore/internal/infra"
)

// ErrNotConfigured indicates that no backend URL was provided.
var ErrNotConfigured = errors.New("supabase: base url is required")

// Options configures the auth API client.
type Options struct {
	BaseURL        string
	AnonKey        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to the hosted auth API for user introspection and session grants.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *infra.Logger
}

// User is the subject returned by user introspection.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
}

// Session is a token grant returned by the token endpoint.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

type errorResponse struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error, e.ErrorCode} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		anonKey:    strings.TrimSpace(opts.AnonKey),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Configured reports whether the client has a backend to talk to.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// GetUser validates an access token and returns its subject. It sends no cookies.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("supabase: %w: empty access token", domain.ErrInvalidCredential)
	}
	var user User
	if err := c.call(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("supabase: %w: user id missing", domain.ErrInvalidCredential)
	}
	return &user, nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, fmt.Errorf("supabase: %w: empty refresh token", domain.ErrInvalidCredential)
	}
	body := map[string]string{"refresh_token": refreshToken}
	var session Session
	if err := c.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &session); err != nil {
		return nil, err
	}
	return normalizeSession(&session), nil
}

// ExchangeCode completes a PKCE authorization code flow.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("supabase: %w: empty auth code", domain.ErrInvalidCredential)
	}
	body := map[string]string{"auth_code": code, "code_verifier": strings.TrimSpace(verifier)}
	var session Session
	if err := c.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=pkce", "", body, &session); err != nil {
		return nil, err
	}
	return normalizeSession(&session), nil
}

func normalizeSession(s *Session) *Session {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
	return s
}

func (c *Client) call(ctx context.Context, method, path, bearer string, payload any, out any) error {
	if !c.Configured() {
		return fmt.Errorf("%w: %w", domain.ErrIdentityUnavailable, ErrNotConfigured)
	}
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("supabase: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("supabase: build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else if c.anonKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: %w: %w", domain.ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("supabase: %w: read response: %w", domain.ErrIdentityUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		var detail errorResponse
		_ = json.Unmarshal(raw, &detail)
		msg := detail.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Debug().Int("status", resp.StatusCode).Str("path", path).Str("detail", msg).Msg("supabase: request rejected")
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("supabase: %w: status %d: %s", domain.ErrIdentityUnavailable, resp.StatusCode, msg)
		}
		return fmt.Errorf("supabase: %w: %s", domain.ErrInvalidCredential, msg)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("supabase: %w: decode response: %w", domain.ErrIdentityUnavailable, err)
	}
	return nil
}
