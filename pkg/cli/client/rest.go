// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package client

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
)

// RESTClient implements Client against the push API.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Client = (*RESTClient)(nil)

// NewRESTClient creates a new REST client
func NewRESTClient(config *Config) (*RESTClient, error) {
	if config == nil || config.ServerURL == "" {
		return nil, ErrServerURLRequired
	}
	return &RESTClient{
		baseURL:    strings.TrimSuffix(config.ServerURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, body []byte, want int) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		if len(data) > 0 {
			return nil, fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("%w %d", ErrServerError, resp.StatusCode)
	}
	return data, nil
}

// CreateEntity onboards an entity.
func (c *RESTClient) CreateEntity(ctx context.Context, entity string) error {
	_, err := c.do(ctx, http.MethodPost, "/push/create/"+url.PathEscape(entity), nil, http.StatusCreated)
	return err
}

// Append pushes one JSON record and returns the key it was stored under.
func (c *RESTClient) Append(ctx context.Context, entity string, payload []byte) (string, error) {
	data, err := c.do(ctx, http.MethodPost, "/push/"+url.PathEscape(entity)+"/addRows", payload, http.StatusOK)
	if err != nil {
		return "", err
	}
	var resp struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode push response: %w", err)
	}
	return resp.Path, nil
}

// Health checks that the server is up.
func (c *RESTClient) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK)
	return err
}

// Close releases idle connections.
func (c *RESTClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
