package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tinydoc/internal/shared"
)

// Client talks to one collection of a tinydoc server.
type Client struct {
	Cfg    *shared.ClientConfig
	Client *http.Client
}

func New(cfg *shared.ClientConfig) *Client {
	return &Client{
		Cfg:    cfg,
		Client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.Cfg.ServerURL, "/") + path
}

func (c *Client) itemPath(id int64) string {
	return "/" + c.Cfg.Collection + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Cfg.APIKey != "" {
		req.Header.Set(shared.HeaderAPIKey, c.Cfg.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Detail: detail(b)}
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

// detail extracts the server's {"detail": ...} message, falling back to the
// raw body.
func detail(b []byte) string {
	var er shared.ErrorResponse
	if err := json.Unmarshal(b, &er); err == nil && er.Detail != nil {
		if s, ok := er.Detail.(string); ok {
			return s
		}
		if j, err := json.Marshal(er.Detail); err == nil {
			return string(j)
		}
	}
	return strings.TrimSpace(string(b))
}

func (c *Client) Health(ctx context.Context) (shared.HealthResponse, error) {
	var hr shared.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &hr)
	return hr, err
}

func (c *Client) AdminSecret(ctx context.Context) (shared.AdminResponse, error) {
	var ar shared.AdminResponse
	err := c.do(ctx, http.MethodGet, "/admin/secret", nil, &ar)
	return ar, err
}

func (c *Client) List(ctx context.Context) ([]shared.RecordOut, error) {
	var out []shared.RecordOut
	if err := c.do(ctx, http.MethodGet, "/"+c.Cfg.Collection, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (shared.RecordOut, error) {
	var out shared.RecordOut
	err := c.do(ctx, http.MethodGet, c.itemPath(id), nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, in shared.RecordInput) (shared.RecordOut, error) {
	var out shared.RecordOut
	err := c.do(ctx, http.MethodPost, "/"+c.Cfg.Collection, in, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id int64, in shared.RecordInput) (shared.RecordOut, error) {
	var out shared.RecordOut
	err := c.do(ctx, http.MethodPut, c.itemPath(id), in, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.itemPath(id), nil, nil)
}
