package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/evm"
)

const (
	requestTimeout = 5 * time.Second
	maxBodySize    = 4 << 20 // 4 MB
)

var (
	// ErrNotLoaded indicates the server has not finished its first poll.
	ErrNotLoaded = errors.New("server: portfolio not loaded yet")
	// ErrProjectNotFound indicates the server does not know the project.
	ErrProjectNotFound = errors.New("server: project not found")
)

// Client reads a running status server.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for addr, either host:port or a full URL.
// Returns nil if addr is empty.
func NewClient(addr string) *Client {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		base: strings.TrimRight(addr, "/"),
		http: &http.Client{},
	}
}

// Healthy reports whether the server answers its health check.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.get(ctx, "/healthz")
	return err == nil
}

// FetchStatus returns the server's runtime status.
func (c *Client) FetchStatus(ctx context.Context) (*Status, error) {
	body, err := c.get(ctx, "/v1/status")
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("server: parsing status: %w", err)
	}
	return &st, nil
}

// FetchPortfolio returns the last polled portfolio.
func (c *Client) FetchPortfolio(ctx context.Context) (*evm.Portfolio, error) {
	body, err := c.get(ctx, "/v1/portfolio")
	if err != nil {
		return nil, err
	}
	var pf evm.Portfolio
	if err := json.Unmarshal(body, &pf); err != nil {
		return nil, fmt.Errorf("server: parsing portfolio: %w", err)
	}
	return &pf, nil
}

// FetchProject returns the current KPI view of one project.
func (c *Client) FetchProject(ctx context.Context, name string) (*ProjectView, error) {
	body, err := c.get(ctx, "/v1/projects/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	var v ProjectView
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("server: parsing project: %w", err)
	}
	return &v, nil
}

// FetchEvents returns the retained change events, oldest first.
func (c *Client) FetchEvents(ctx context.Context) ([]Event, error) {
	body, err := c.get(ctx, "/v1/events")
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("server: parsing events: %w", err)
	}
	return events, nil
}

// get performs a GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("server: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		return nil, ErrNotLoaded
	case http.StatusNotFound:
		return nil, ErrProjectNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("server: reading response: %w", err)
	}
	return body, nil
}
