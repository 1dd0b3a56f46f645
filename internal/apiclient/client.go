/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package apiclient is a small HTTP client for a running cinevision server.
package apiclient

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

	"cinevision/internal/analysis"
	"cinevision/internal/script"
)

// Client talks to the cinevision HTTP API.
type Client struct {
	BaseURL string
	client  *http.Client
}

// NewClient creates a new client. baseURL may include a trailing slash; it will be normalized.
// A zero timeout selects 60s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded with status %d", e.Status)
	}
	return fmt.Sprintf("server responded with status %d: %s", e.Status, e.Message)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", u.Path, err)
	}
	return nil
}

type scriptBody struct {
	ScriptText string `json:"scriptText"`
}

// Health checks the server and returns its version.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
		return "", err
	}
	if out.Status != "ok" {
		return out.Version, fmt.Errorf("server status %q", out.Status)
	}
	return out.Version, nil
}

// Analyze runs the full pipeline remotely.
func (c *Client) Analyze(ctx context.Context, text string) (*analysis.Result, error) {
	var res analysis.Result
	if err := c.doJSON(ctx, http.MethodPost, "/api/analyze", scriptBody{text}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Parse returns the remote scene model and diagnostics.
func (c *Client) Parse(ctx context.Context, text string) (*script.Model, []script.Error, error) {
	var out struct {
		Model       *script.Model  `json:"model"`
		Diagnostics []script.Error `json:"diagnostics"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/parse", scriptBody{text}, &out); err != nil {
		return nil, nil, err
	}
	return out.Model, out.Diagnostics, nil
}
