// internal/clients/api_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"libranexus/internal/httpx"
	"libranexus/internal/integrity"
)

// APIClient talks to a running libranexus server.
type APIClient struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError is returned for responses outside 2xx. Message comes from the
// server's error body when it has one.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.Status, e.Message)
}

// Login exchanges credentials for a token used by later calls.
func (c *APIClient) Login(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/authentication/login", body, &out, http.StatusOK); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.token = out.Token
	return nil
}

// Integrity runs the server-side audit. An unhealthy report is returned
// together with a nil error.
func (c *APIClient) Integrity(ctx context.Context) (*integrity.Report, error) {
	var report integrity.Report
	err := c.do(ctx, http.MethodGet, "/api/v1/admin/integrity", nil, &report, http.StatusOK, http.StatusServiceUnavailable)
	if err != nil {
		return nil, fmt.Errorf("integrity: %w", err)
	}
	return &report, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any, accept ...int) error {
	var body *bytes.Buffer
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	for _, code := range accept {
		if resp.StatusCode == code {
			return json.NewDecoder(resp.Body).Decode(out)
		}
	}
	var apiErr httpx.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	return &StatusError{Status: resp.StatusCode, Message: apiErr.Message}
}
