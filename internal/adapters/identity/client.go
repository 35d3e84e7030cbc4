// Package identity implements the identity-service contract over HTTP.
// The hosted service owns credential storage and session issuance; this
// adapter only submits credentials and reports success or failure.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/config"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/ports"
)

// Client is an HTTP client for the hosted identity service.
type Client struct {
	baseURL    string
	appID      string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates an identity-service client from backend configuration.
func NewClient(cfg config.BackendConfig, appLogger *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.IdentityURL, "/"),
		appID:   cfg.AppID,
		logger:  appLogger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      entities.User `json:"user"`
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (*ports.Session, error) {
	sess, err := c.postSession(ctx, "/api/v1/auth/login", creds, "")
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return sess, nil
}

// Signup registers a new account and returns its first session.
func (c *Client) Signup(ctx context.Context, input ports.SignupInput) (*ports.Session, error) {
	sess, err := c.postSession(ctx, "/api/v1/auth/signup", input, "")
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return sess, nil
}

// Logout invalidates the session on the service side.
func (c *Client) Logout(ctx context.Context, token string) error {
	if _, err := c.postSession(ctx, "/api/v1/auth/logout", nil, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (c *Client) postSession(ctx context.Context, path string, body interface{}, token string) (*ports.Session, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-App-Id", c.appID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &entities.RemoteError{Op: "POST " + path, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &errResp) != nil || errResp.Message == "" {
			errResp.Message = strings.TrimSpace(string(data))
		}
		return nil, &entities.RemoteError{
			Op:      "POST " + path,
			Status:  resp.StatusCode,
			Message: errResp.Message,
		}
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &ports.Session{Token: sr.Token, ExpiresAt: sr.ExpiresAt, User: sr.User}, nil
}
