// Raw HTTP access to the companion lyrics server
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxResponseSize = 4 << 20

// APIService makes raw HTTP requests against a base URL.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates an API service for baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:5000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to path with query parameters and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string, params url.Values) (*APIResponse, error) {
	fullURL := a.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// ErrorMessage returns the "error" field of a JSON error body, or the raw body.
func (r *APIResponse) ErrorMessage() string {
	if obj, ok := r.JSONData.(map[string]any); ok {
		if msg, ok := obj["error"].(string); ok {
			return msg
		}
	}
	if msg := strings.TrimSpace(string(r.Body)); msg != "" {
		return msg
	}
	return http.StatusText(r.StatusCode)
}
