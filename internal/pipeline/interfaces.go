// Package pipeline orchestrates the site rebuild flow: scrape the existing
// site, analyze the business, generate a replacement, deploy it.
package pipeline

import "context"

// Breaker names for the external dependencies the stages call through.
const (
	BreakerScraper         = "scraper_api"
	BreakerScraperFallback = "scraper_fallback_api"
	BreakerAI              = "ai_api"
	BreakerDeploy          = "deploy_api"
)

// ScrapeResult is what a Scraper extracted from the lead's current site.
type ScrapeResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Content     string `json:"content"`
}

// Analysis is the AI assessment of the scraped business.
type Analysis struct {
	Industry string   `json:"industry"`
	Issues   []string `json:"issues"`
	Summary  string   `json:"summary"`
}

// GeneratedSite is the rebuilt site plus the outreach email pitching it.
type GeneratedSite struct {
	HTML          string `json:"html"`
	OutreachEmail string `json:"outreach_email"`
}

// DeployResult reports where the generated site went live.
type DeployResult struct {
	URL string `json:"url"`
}

// Scraper extracts content from a business website. Implementations include
// the primary scraping API and a simpler fallback fetcher.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*ScrapeResult, error)
}

// Analyzer assesses a scraped site.
type Analyzer interface {
	Analyze(ctx context.Context, scraped *ScrapeResult) (*Analysis, error)
}

// Generator produces the replacement site and outreach email.
type Generator interface {
	Generate(ctx context.Context, businessName, template string, analysis *Analysis) (*GeneratedSite, error)
}

// Deployer publishes a generated site to hosting.
type Deployer interface {
	Deploy(ctx context.Context, jobID string, site *GeneratedSite) (*DeployResult, error)
}
