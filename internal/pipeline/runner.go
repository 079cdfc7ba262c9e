package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dizid/site-improver/internal/billing"
	"github.com/dizid/site-improver/internal/breaker"
	"github.com/dizid/site-improver/internal/progress"
	"github.com/dizid/site-improver/internal/store"
)

// Job is one unit of pipeline work, created at submission time.
type Job struct {
	ID           string
	TenantID     string
	PlanID       string
	URL          string
	BusinessName string
	Template     string
	LeadID       string
	Tracker      *progress.Tracker
}

// Runner executes pipeline jobs stage by stage. Every external call goes
// through the breaker registry so a failing dependency fails fast instead of
// stalling the pool.
type Runner struct {
	breakers  *breaker.Registry
	scraper   Scraper
	fallback  Scraper
	analyzer  Analyzer
	generator Generator
	deployer  Deployer
	records   store.Store
	usage     *billing.Enforcer
	logger    *slog.Logger
}

// NewRunner wires a Runner. fallback may be nil when no secondary scraper is
// configured.
func NewRunner(
	breakers *breaker.Registry,
	scraper, fallback Scraper,
	analyzer Analyzer,
	generator Generator,
	deployer Deployer,
	records store.Store,
	usage *billing.Enforcer,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		breakers:  breakers,
		scraper:   scraper,
		fallback:  fallback,
		analyzer:  analyzer,
		generator: generator,
		deployer:  deployer,
		records:   records,
		usage:     usage,
		logger:    logger,
	}
}

// Run executes one job to completion. It never returns an error and never
// panics out: failures are reported on the tracker and persisted, and the
// worker goroutine stays healthy for the next job.
func (r *Runner) Run(ctx context.Context, job Job) {
	log := r.logger.With("job_id", job.ID, "tenant_id", job.TenantID)
	t := job.Tracker

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("pipeline panicked", "panic", rec)
			t.Error(errors.New("internal pipeline error"), "pipeline")
		}
	}()

	scoped := store.NewScoped(r.records, job.TenantID)

	t.Stage(progress.StageScraping, "Scraping existing site", 10)
	scraped, err := r.scrape(ctx, t, job.URL)
	if err != nil {
		r.fail(ctx, scoped, log, job, t, err, "scrape")
		return
	}

	t.Stage(progress.StageAnalyzing, "Analyzing business", 30)
	analysis, err := execAs[*Analysis](ctx, r.breakers, BreakerAI, func(ctx context.Context) (any, error) {
		return r.analyzer.Analyze(ctx, scraped)
	})
	if err != nil {
		r.fail(ctx, scoped, log, job, t, err, "analyze")
		return
	}

	t.Stage(progress.StageGenerating, "Generating new site", 55)
	site, err := execAs[*GeneratedSite](ctx, r.breakers, BreakerAI, func(ctx context.Context) (any, error) {
		return r.generator.Generate(ctx, job.BusinessName, job.Template, analysis)
	})
	if err != nil {
		r.fail(ctx, scoped, log, job, t, err, "generate")
		return
	}

	t.Stage(progress.StageBuilding, "Assembling site", 75)

	t.Stage(progress.StageDeploying, "Deploying to hosting", 90)
	deployed, err := execAs[*DeployResult](ctx, r.breakers, BreakerDeploy, func(ctx context.Context) (any, error) {
		return r.deployer.Deploy(ctx, job.ID, site)
	})
	if err != nil {
		r.fail(ctx, scoped, log, job, t, err, "deploy")
		return
	}

	deployment := &store.Deployment{
		LeadID:      job.LeadID,
		JobID:       job.ID,
		URL:         job.URL,
		DeployedURL: deployed.URL,
		Status:      store.DeploymentStatusDeployed,
	}
	if err := scoped.CreateDeployment(ctx, deployment); err != nil {
		r.fail(ctx, scoped, log, job, t, fmt.Errorf("persist deployment: %w", err), "deploy")
		return
	}

	r.recordCompletion(ctx, scoped, log, job, scraped, site)

	log.Info("pipeline complete", "deployed_url", deployed.URL)
	t.Complete(map[string]any{
		"deployed_url":  deployed.URL,
		"deployment_id": deployment.ID,
	})
}

// scrape tries the primary scraper through its breaker and falls back to the
// secondary scraper when the primary fails or its breaker is open.
func (r *Runner) scrape(ctx context.Context, t *progress.Tracker, url string) (*ScrapeResult, error) {
	scraped, err := execAs[*ScrapeResult](ctx, r.breakers, BreakerScraper, func(ctx context.Context) (any, error) {
		return r.scraper.Scrape(ctx, url)
	})
	if err == nil {
		return scraped, nil
	}
	if r.fallback == nil {
		return nil, err
	}

	t.Stage(progress.StageScrapeFallback, "Primary scraper unavailable, using fallback", 15)
	scraped, ferr := execAs[*ScrapeResult](ctx, r.breakers, BreakerScraperFallback, func(ctx context.Context) (any, error) {
		return r.fallback.Scrape(ctx, url)
	})
	if ferr != nil {
		return nil, fmt.Errorf("fallback scrape: %w", ferr)
	}
	return scraped, nil
}

// fail records the failed run and reports it on the tracker.
func (r *Runner) fail(ctx context.Context, scoped *store.Scoped, log *slog.Logger, job Job, t *progress.Tracker, err error, step string) {
	log.Error("pipeline stage failed", "step", step, "error", err)

	deployment := &store.Deployment{
		LeadID:       job.LeadID,
		JobID:        job.ID,
		URL:          job.URL,
		Status:       store.DeploymentStatusFailed,
		ErrorMessage: err.Error(),
	}
	if perr := scoped.CreateDeployment(ctx, deployment); perr != nil {
		log.Error("failed to persist failed deployment", "error", perr)
	}

	t.Error(err, step)
}

// recordCompletion updates lead records and usage counters after a
// successful deploy. Failures here are logged, not fatal: the site is live.
func (r *Runner) recordCompletion(ctx context.Context, scoped *store.Scoped, log *slog.Logger, job Job, scraped *ScrapeResult, site *GeneratedSite) {
	if job.LeadID == "" {
		lead := &store.Lead{
			BusinessName: job.BusinessName,
			URL:          job.URL,
			Email:        scraped.Email,
		}
		if lead.BusinessName == "" {
			lead.BusinessName = scraped.Title
		}
		if err := scoped.CreateLead(ctx, lead); err != nil {
			log.Error("failed to record discovered lead", "error", err)
		} else if _, err := r.usage.IncrementUsage(ctx, job.TenantID, billing.MetricLeadsDiscovered, 1); err != nil {
			log.Error("failed to count discovered lead", "error", err)
		}
	}

	if site.OutreachEmail != "" {
		if _, err := r.usage.IncrementUsage(ctx, job.TenantID, billing.MetricEmailsSent, 1); err != nil {
			log.Error("failed to count outreach email", "error", err)
		}
	}
}

// execAs runs fn through the named breaker and asserts the result type.
func execAs[T any](ctx context.Context, reg *breaker.Registry, name string, fn func(context.Context) (any, error)) (T, error) {
	var zero T
	out, err := reg.Execute(ctx, name, fn)
	if err != nil {
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("breaker %s returned unexpected type %T", name, out)
	}
	return v, nil
}
