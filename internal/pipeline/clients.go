package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpDo posts a JSON body to url and decodes the JSON response into out.
// Non-2xx responses become errors so the circuit breaker sees them as
// failures.
func httpDo(ctx context.Context, client *http.Client, url string, in, out any) error {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, bytes.TrimSpace(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func newClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// HTTPScraper calls a scraping service's /scrape endpoint. It serves both the
// primary scraper and the fallback fetcher, pointed at different base URLs.
type HTTPScraper struct {
	baseURL string
	client  *http.Client
}

func NewHTTPScraper(baseURL string) *HTTPScraper {
	return &HTTPScraper{baseURL: baseURL, client: newClient(30 * time.Second)}
}

func (s *HTTPScraper) Scrape(ctx context.Context, url string) (*ScrapeResult, error) {
	var out ScrapeResult
	req := map[string]string{"url": url}
	if err := httpDo(ctx, s.client, s.baseURL+"/scrape", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HTTPAnalyzer calls the AI service's /analyze endpoint.
type HTTPAnalyzer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAnalyzer(baseURL string) *HTTPAnalyzer {
	// AI calls are slow; give them more room than the scraper.
	return &HTTPAnalyzer{baseURL: baseURL, client: newClient(2 * time.Minute)}
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, scraped *ScrapeResult) (*Analysis, error) {
	var out Analysis
	if err := httpDo(ctx, a.client, a.baseURL+"/analyze", scraped, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HTTPGenerator calls the AI service's /generate endpoint.
type HTTPGenerator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGenerator(baseURL string) *HTTPGenerator {
	return &HTTPGenerator{baseURL: baseURL, client: newClient(2 * time.Minute)}
}

func (g *HTTPGenerator) Generate(ctx context.Context, businessName, template string, analysis *Analysis) (*GeneratedSite, error) {
	req := struct {
		BusinessName string    `json:"business_name"`
		Template     string    `json:"template"`
		Analysis     *Analysis `json:"analysis"`
	}{businessName, template, analysis}

	var out GeneratedSite
	if err := httpDo(ctx, g.client, g.baseURL+"/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HTTPDeployer calls the hosting service's /deploy endpoint.
type HTTPDeployer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDeployer(baseURL string) *HTTPDeployer {
	return &HTTPDeployer{baseURL: baseURL, client: newClient(time.Minute)}
}

func (d *HTTPDeployer) Deploy(ctx context.Context, jobID string, site *GeneratedSite) (*DeployResult, error) {
	req := struct {
		JobID string `json:"job_id"`
		HTML  string `json:"html"`
	}{jobID, site.HTML}

	var out DeployResult
	if err := httpDo(ctx, d.client, d.baseURL+"/deploy", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
