package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
)

// Client fetches JSON documents from upstream data providers. It supports
// http(s) URLs with ?page=N pagination and file URLs for deterministic
// tests. File sources are single-page: page 0 returns the whole document,
// every later page is an empty listing.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(connectTimeout, readTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
		},
		logger: logger,
	}
}

// Get fetches one document.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %q: %w", rawURL, err)
	}

	if u.Scheme == "file" {
		return os.ReadFile(u.Path)
	}

	return c.get(ctx, rawURL)
}

// GetPage fetches page N of a paginated listing.
func (c *Client) GetPage(ctx context.Context, rawURL string, page int) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source url %q: %w", rawURL, err)
	}

	if u.Scheme == "file" {
		if page > 0 {
			return []byte("[]"), nil
		}
		return os.ReadFile(u.Path)
	}

	q := u.Query()
	q.Set("page", fmt.Sprintf("%d", page))
	u.RawQuery = q.Encode()

	return c.get(ctx, u.String())
}

// PostJSON posts a JSON body and checks for a 2xx response.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	c.logger.Debug("Fetching upstream document", zap.String("url", rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
