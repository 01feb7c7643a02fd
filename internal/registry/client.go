// Package registry is the client of the civic registry REST API.
package registry

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

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/civic-registry/console/internal/listctl"
)

const maxErrorBody = 64 << 10

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RPS limits outgoing calls per second; zero disables limiting.
	RPS        float64
	Burst      int
	HTTPClient *http.Client
}

// Client wraps interactions with the registry API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient constructs a new client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("registry: invalid base url %q", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RPS))
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &Client{baseURL: base, token: cfg.Token, httpClient: httpClient, limiter: limiter}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *pageMeta       `json:"meta"`
	Message string          `json:"message"`
}

type pageMeta struct {
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Ping checks if the registry API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ping: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: "registry health check failed"}
	}
	return nil
}

// List fetches one page of resource.
func List[T any](ctx context.Context, c *Client, resource string, params url.Values) (listctl.PageResult[T], error) {
	env, err := c.do(ctx, http.MethodGet, "/"+resource, params, nil)
	if err != nil {
		return listctl.PageResult[T]{}, err
	}
	var items []T
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return listctl.PageResult[T]{}, fmt.Errorf("%w: %s data: %w", ErrMalformedResponse, resource, err)
		}
	}
	result := listctl.PageResult[T]{Items: items}
	if env.Meta != nil {
		result.Total = env.Meta.Total
		result.TotalPages = env.Meta.TotalPages
	} else {
		result.Total = len(items)
	}
	return result, nil
}

// Get fetches a single record of resource.
func Get[T any](ctx context.Context, c *Client, resource, id string) (T, error) {
	var record T
	env, err := c.do(ctx, http.MethodGet, "/"+resource+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(env.Data, &record); err != nil {
		return record, fmt.Errorf("%w: %s/%s: %w", ErrMalformedResponse, resource, id, err)
	}
	return record, nil
}

// Create posts payload to resource and returns the new record id.
func (c *Client) Create(ctx context.Context, resource string, payload any) (ID, error) {
	env, err := c.do(ctx, http.MethodPost, "/"+resource, nil, payload)
	if err != nil {
		return "", err
	}
	var created struct {
		ID ID `json:"id"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &created); err != nil {
			return "", fmt.Errorf("%w: %s create: %w", ErrMalformedResponse, resource, err)
		}
	}
	return created.ID, nil
}

// Update replaces the fields of record id with payload.
func (c *Client) Update(ctx context.Context, resource, id string, payload any) error {
	_, err := c.do(ctx, http.MethodPut, "/"+resource+"/"+url.PathEscape(id), nil, payload)
	return err
}

// Delete removes record id.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/"+resource+"/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("registry: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("registry: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %w", ErrTransport, method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.Message
		} else if len(raw) <= maxErrorBody && !looksLikeHTML(raw) {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
			return &envelope{Success: true}, nil
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrMalformedResponse, method, path, decodeErr)
	}
	if !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}

func looksLikeHTML(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return bytes.HasPrefix(trimmed, []byte("<"))
}

// IsTransport reports whether err means the API could not be reached.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
