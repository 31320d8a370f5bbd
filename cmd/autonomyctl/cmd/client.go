package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autonomy-core/pkg/api"
)

// AdminClient handles API calls to the autonomyd admin server.
type AdminClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewAdminClient creates a new client with the given base URL and token.
func NewAdminClient(baseURL, token string) *AdminClient {
	return &AdminClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the admin API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *AdminClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Status fetches GET /admin/status.
func (c *AdminClient) Status() (*api.StatusResponse, error) {
	var out api.StatusResponse
	if err := c.do(http.MethodGet, "/admin/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MCP fetches GET /admin/mcp.
func (c *AdminClient) MCP() (map[string]any, error) {
	var out map[string]any
	if err := c.do(http.MethodGet, "/admin/mcp", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSchedule fetches GET /admin/schedule.
func (c *AdminClient) ListSchedule() (*api.ListTasksResponse, error) {
	var out api.ListTasksResponse
	if err := c.do(http.MethodGet, "/admin/schedule", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddSchedule sends POST /admin/schedule.
func (c *AdminClient) AddSchedule(req api.AddTaskRequest) (*api.AddTaskResponse, error) {
	var out api.AddTaskResponse
	if err := c.do(http.MethodPost, "/admin/schedule", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunSchedule sends POST /admin/schedule/{id}/run.
func (c *AdminClient) RunSchedule(id string) (*api.RunTaskResponse, error) {
	var out api.RunTaskResponse
	if err := c.do(http.MethodPost, fmt.Sprintf("/admin/schedule/%s/run", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetScheduleEnabled sends PUT /admin/schedule/{id}/enabled.
func (c *AdminClient) SetScheduleEnabled(id string, enabled bool) error {
	return c.do(http.MethodPut, fmt.Sprintf("/admin/schedule/%s/enabled", id), api.SetTaskEnabledRequest{Enabled: enabled}, nil)
}

// DeleteSchedule sends DELETE /admin/schedule/{id}.
func (c *AdminClient) DeleteSchedule(id string) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/admin/schedule/%s", id), nil, nil)
}

// AddMemory sends POST /admin/memories.
func (c *AdminClient) AddMemory(req api.AddMemoryRequest) (*api.AddMemoryResponse, error) {
	var out api.AddMemoryResponse
	if err := c.do(http.MethodPost, "/admin/memories", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchMemories sends POST /admin/memories/search.
func (c *AdminClient) SearchMemories(req api.MemorySearchRequest) (*api.MemorySearchResponse, error) {
	var out api.MemorySearchResponse
	if err := c.do(http.MethodPost, "/admin/memories/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Personality fetches GET /admin/personality/{user_id}.
func (c *AdminClient) Personality(userID string) (*api.PersonalityResponse, error) {
	var out api.PersonalityResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/admin/personality/%s", userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reset sends POST /admin/reset.
func (c *AdminClient) Reset(req api.ResetRequest) error {
	return c.do(http.MethodPost, "/admin/reset", req, nil)
}

// Example fetches GET /admin/example.
func (c *AdminClient) Example() (*api.ExampleResponse, error) {
	var out api.ExampleResponse
	if err := c.do(http.MethodGet, "/admin/example", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
