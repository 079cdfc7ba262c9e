package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dizid/site-improver/pkg/api"
)

// Client handles API calls to the site-improver server.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client with the given base URL and token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// do issues a request and decodes the JSON response into out.
func (c *Client) do(method, path string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// CreateTenant sends POST /tenants to register a tenant and mint an API key.
func (c *Client) CreateTenant(req api.CreateTenantRequest) (*api.CreateTenantResponse, error) {
	var result api.CreateTenantResponse
	if err := c.do(http.MethodPost, "/tenants", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunPipeline sends POST /pipeline to submit a site rebuild.
func (c *Client) RunPipeline(req api.RunPipelineRequest) (*api.RunPipelineResponse, error) {
	var result api.RunPipelineResponse
	if err := c.do(http.MethodPost, "/pipeline", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// JobStatus sends GET /pipeline/{id}/status to retrieve pipeline progress.
func (c *Client) JobStatus(jobID string) (*api.JobStatusResponse, error) {
	var result api.JobStatusResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/pipeline/%s/status", jobID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Usage sends GET /usage to retrieve the current billing period summary.
func (c *Client) Usage() (*api.UsageSummaryResponse, error) {
	var result api.UsageSummaryResponse
	if err := c.do(http.MethodGet, "/usage", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListLeads sends GET /leads to retrieve the tenant's outreach leads.
func (c *Client) ListLeads() (*api.ListLeadsResponse, error) {
	var result api.ListLeadsResponse
	if err := c.do(http.MethodGet, "/leads", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StreamEvents subscribes to GET /pipeline/{id}/events and invokes fn for
// every progress event until the stream ends or ctx is cancelled.
func (c *Client) StreamEvents(ctx context.Context, jobID string, fn func(api.JobStatusResponse)) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/pipeline/%s/events", c.BaseURL, jobID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	httpReq.Header.Add("Accept", "text/event-stream")

	// The stream stays open for the life of the job; no client timeout.
	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		// Keepalive comments and blank frame separators carry no payload.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event api.JobStatusResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			return fmt.Errorf("failed to parse event: %w", err)
		}
		fn(event)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream closed unexpectedly: %w", err)
	}
	return nil
}
