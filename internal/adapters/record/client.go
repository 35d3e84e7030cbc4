// Package record implements the record-service contract over HTTP.
package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/config"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/ports"
)

// Client is an HTTP client for the hosted record service.
type Client struct {
	baseURL    string
	appID      string
	httpClient *http.Client
	logger     *logger.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a record-service client from backend configuration.
func NewClient(cfg config.BackendConfig, appLogger *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.RecordURL, "/"),
		appID:   cfg.AppID,
		logger:  appLogger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetToken binds the session token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// FetchRecords runs a query against a table and returns one result page
// plus the server's total row count.
func (c *Client) FetchRecords(ctx context.Context, table string, query ports.RecordQuery) (*ports.RecordPage, error) {
	endpoint := fmt.Sprintf("%s/api/v1/tables/%s/query", c.baseURL, url.PathEscape(table))

	var page ports.RecordPage
	if err := c.do(ctx, http.MethodPost, endpoint, query, &page); err != nil {
		return nil, fmt.Errorf("fetch records from %q: %w", table, err)
	}
	if page.Data == nil {
		page.Data = []json.RawMessage{}
	}

	return &page, nil
}

// FetchRecord retrieves one record by ID.
func (c *Client) FetchRecord(ctx context.Context, table, id string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/api/v1/tables/%s/records/%s", c.baseURL, url.PathEscape(table), url.PathEscape(id))

	var resp recordResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch record %s/%s: %w", table, id, err)
	}

	return resp.Data, nil
}

// CreateRecord inserts a record and returns the service's canonical copy,
// including the assigned ID.
func (c *Client) CreateRecord(ctx context.Context, table string, rec interface{}) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/api/v1/tables/%s/records", c.baseURL, url.PathEscape(table))

	var resp recordResponse
	if err := c.do(ctx, http.MethodPost, endpoint, recordEnvelope{Record: rec}, &resp); err != nil {
		return nil, fmt.Errorf("create record in %q: %w", table, err)
	}

	return resp.Data, nil
}

// UpdateRecord applies a partial field replacement and returns the
// canonical updated record.
func (c *Client) UpdateRecord(ctx context.Context, table, id string, rec interface{}) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/api/v1/tables/%s/records/%s", c.baseURL, url.PathEscape(table), url.PathEscape(id))

	var resp recordResponse
	if err := c.do(ctx, http.MethodPatch, endpoint, recordEnvelope{Record: rec}, &resp); err != nil {
		return nil, fmt.Errorf("update record %s/%s: %w", table, id, err)
	}

	return resp.Data, nil
}

// DeleteRecord hard-deletes a record. Deleting a nonexistent ID surfaces
// the service's error; idempotency is not guaranteed.
func (c *Client) DeleteRecord(ctx context.Context, table, id string) error {
	endpoint := fmt.Sprintf("%s/api/v1/tables/%s/records/%s", c.baseURL, url.PathEscape(table), url.PathEscape(id))

	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("delete record %s/%s: %w", table, id, err)
	}
	return nil
}

type recordEnvelope struct {
	Record interface{} `json:"record"`
}

type recordResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// do executes one request/response exchange. There are no retries: any
// failure is mapped and returned to the caller as-is.
func (c *Client) do(ctx context.Context, method, endpoint string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-App-Id", c.appID)
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.logger != nil {
		c.logger.LogGatewayCall(method, endpoint, float64(time.Since(start).Nanoseconds())/1e6, err)
	}
	if err != nil {
		return &entities.RemoteError{Op: method + " " + endpoint, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return entities.ErrRecordNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &errResp) != nil || errResp.Message == "" {
			errResp.Message = strings.TrimSpace(string(data))
		}
		return &entities.RemoteError{
			Op:      method + " " + endpoint,
			Status:  resp.StatusCode,
			Message: errResp.Message,
		}
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
