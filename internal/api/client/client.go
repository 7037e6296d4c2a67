package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/osa911/datacap/internal/api/dto/common"
	"github.com/osa911/datacap/internal/api/dto/v1/packages"
	"github.com/osa911/datacap/internal/api/dto/v1/quota"
	"github.com/osa911/datacap/internal/api/dto/v1/status"
)

// DefaultTimeout covers every call except purchases, which wait for the carrier
const DefaultTimeout = 10 * time.Second

// APIError is a non-success envelope returned by the daemon
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Code)
}

// Client talks to the daemon's control API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL, e.g. http://127.0.0.1:7765
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *Client) Health(ctx context.Context) (*status.HealthResponse, error) {
	var out status.HealthResponse
	return &out, c.do(ctx, http.MethodGet, "/api/v1/health", nil, &out)
}

func (c *Client) Status(ctx context.Context) (*status.Response, error) {
	var out status.Response
	return &out, c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out)
}

func (c *Client) SaveQuota(ctx context.Context, limitBytes uint64, expiryTimeMs int64) (*quota.Response, error) {
	var out quota.Response
	req := quota.SaveRequest{LimitBytes: &limitBytes, ExpiryTimeMs: expiryTimeMs}
	return &out, c.do(ctx, http.MethodPost, "/api/v1/quota", req, &out)
}

func (c *Client) SaveQuotaForm(ctx context.Context, limitMB, days string) (*quota.Response, error) {
	var out quota.Response
	req := quota.FormRequest{LimitMB: limitMB, Days: days}
	return &out, c.do(ctx, http.MethodPost, "/api/v1/quota/form", req, &out)
}

func (c *Client) SetEnabled(ctx context.Context, enabled bool) (string, error) {
	return c.message(ctx, http.MethodPut, "/api/v1/quota/enabled", quota.EnabledRequest{Enabled: &enabled})
}

func (c *Client) Block(ctx context.Context) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/v1/block", nil)
}

func (c *Client) Unblock(ctx context.Context) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/v1/unblock", nil)
}

func (c *Client) ResetUsage(ctx context.Context) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/v1/usage/reset", nil)
}

func (c *Client) Action(ctx context.Context, action string) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/v1/actions/"+action, nil)
}

func (c *Client) RestartEngine(ctx context.Context) (string, error) {
	return c.message(ctx, http.MethodPost, "/api/v1/engine/restart", nil)
}

func (c *Client) Packages(ctx context.Context) ([]packages.Response, error) {
	var out []packages.Response
	return out, c.do(ctx, http.MethodGet, "/api/v1/packages", nil, &out)
}

func (c *Client) Purchase(ctx context.Context, id int) (*packages.PurchaseResponse, error) {
	var out packages.PurchaseResponse
	return &out, c.do(ctx, http.MethodPost, "/api/v1/packages/"+strconv.Itoa(id)+"/purchase", nil, &out)
}

func (c *Client) message(ctx context.Context, method, path string, body interface{}) (string, error) {
	var out common.MessageResponse
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon at %s (is 'datacap run' active?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	envelope := struct {
		Success bool                  `json:"success"`
		Data    json.RawMessage       `json:"data"`
		Error   *common.ErrorResponse `json:"error"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if !envelope.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}
