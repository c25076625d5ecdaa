package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/debemdeboas/the-kennel/internal/model"
)

const maxErrorBody = 512

// Client is the REST implementation of Backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL whose requests give up after timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) layoutURL(owner model.OwnerID) string {
	return c.baseURL + "/api/sites/" + url.PathEscape(string(owner)) + "/layout"
}

func (c *Client) GetLayout(ctx context.Context, owner model.OwnerID) (*model.LayoutConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.layoutURL(owner), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, "get layout")
}

func (c *Client) PutLayout(ctx context.Context, owner model.OwnerID, cfg *model.LayoutConfig) (*model.LayoutConfig, error) {
	body, err := json.Marshal(envelope{LayoutConfig: cfg})
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.layoutURL(owner), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "put layout")
}

func (c *Client) do(req *http.Request, op string) (*model.LayoutConfig, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	gatewayLogger.Debug().
		Str("op", op).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend response")

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if env.LayoutConfig == nil {
		env.LayoutConfig = &model.LayoutConfig{}
	}
	return env.LayoutConfig, nil
}
