package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dizid/site-improver/internal/billing"
	"github.com/dizid/site-improver/internal/breaker"
	"github.com/dizid/site-improver/internal/logger"
	"github.com/dizid/site-improver/internal/progress"
	"github.com/dizid/site-improver/internal/store"
)

type stubScraper struct {
	result *ScrapeResult
	err    error
	calls  int
}

func (s *stubScraper) Scrape(ctx context.Context, url string) (*ScrapeResult, error) {
	s.calls++
	return s.result, s.err
}

type stubAnalyzer struct {
	err error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, scraped *ScrapeResult) (*Analysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Analysis{Industry: "plumbing", Summary: "dated site"}, nil
}

type stubGenerator struct {
	email string
	err   error
}

func (s *stubGenerator) Generate(ctx context.Context, businessName, template string, analysis *Analysis) (*GeneratedSite, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &GeneratedSite{HTML: "<html></html>", OutreachEmail: s.email}, nil
}

type stubDeployer struct {
	url   string
	err   error
	panic bool
}

func (s *stubDeployer) Deploy(ctx context.Context, jobID string, site *GeneratedSite) (*DeployResult, error) {
	if s.panic {
		panic("deployer exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &DeployResult{URL: s.url}, nil
}

type fixture struct {
	runner   *Runner
	bus      *progress.Bus
	records  *store.Memory
	enforcer *billing.Enforcer
	scraper  *stubScraper
	fallback *stubScraper
	deployer *stubDeployer
}

func newFixture(t *testing.T, mutate func(*fixture)) *fixture {
	t.Helper()
	log := logger.New()
	f := &fixture{
		bus:      progress.NewBus(log, progress.WithCloseGrace(10*time.Millisecond)),
		records:  store.NewMemory(),
		enforcer: billing.NewEnforcer(billing.NewMemoryLedger(), log),
		scraper:  &stubScraper{result: &ScrapeResult{Title: "Joes Plumbing", Email: "joe@example.com"}},
		fallback: &stubScraper{result: &ScrapeResult{Title: "Joes Plumbing (fallback)"}},
		deployer: &stubDeployer{url: "https://joes.pages.dev"},
	}
	if mutate != nil {
		mutate(f)
	}
	f.runner = NewRunner(
		breaker.NewRegistry(log, nil),
		f.scraper, f.fallback,
		&stubAnalyzer{},
		&stubGenerator{email: "hi joe"},
		f.deployer,
		f.records,
		f.enforcer,
		log,
	)
	return f
}

func runJob(f *fixture, job Job) []progress.Snapshot {
	job.Tracker = f.bus.Track(job.ID)
	ch, cancel := f.bus.Subscribe(job.ID)
	defer cancel()

	f.runner.Run(context.Background(), job)

	var seen []progress.Snapshot
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return seen
			}
			seen = append(seen, snap)
			if snap.Stage.Terminal() {
				return seen
			}
		case <-time.After(2 * time.Second):
			return seen
		}
	}
}

func stages(snaps []progress.Snapshot) []progress.Stage {
	out := make([]progress.Stage, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Stage)
	}
	return out
}

func TestRunnerHappyPath(t *testing.T) {
	f := newFixture(t, nil)

	job := Job{ID: "job-1", TenantID: "tenant-1", PlanID: "starter", URL: "https://joes.example.com", BusinessName: "Joes Plumbing"}
	seen := runJob(f, job)

	assert.Equal(t, []progress.Stage{
		progress.StageQueued,
		progress.StageScraping,
		progress.StageAnalyzing,
		progress.StageGenerating,
		progress.StageBuilding,
		progress.StageDeploying,
		progress.StageComplete,
	}, stages(seen))

	final := seen[len(seen)-1]
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, "https://joes.pages.dev", final.Result["deployed_url"])

	deployments, err := f.records.ListDeployments(context.Background())
	require.NoError(t, err)
	require.Len(t, deployments, 1)
	assert.Equal(t, store.DeploymentStatusDeployed, deployments[0].Status)
	assert.Equal(t, "tenant-1", deployments[0].TenantID)
	assert.Equal(t, "job-1", deployments[0].JobID)

	// Run with no lead id records the discovered lead and counts usage.
	leads, err := f.records.ListLeads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "joe@example.com", leads[0].Email)

	usage, err := f.enforcer.UsageSummary(context.Background(), "tenant-1", "starter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.Metrics[billing.MetricLeadsDiscovered].Current)
	assert.Equal(t, int64(1), usage.Metrics[billing.MetricEmailsSent].Current)
}

func TestRunnerScraperFallback(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.scraper.err = errors.New("primary scraper 502")
	})

	job := Job{ID: "job-2", TenantID: "tenant-1", PlanID: "starter", URL: "https://acme.example.com", BusinessName: "Acme", LeadID: "lead-1"}
	seen := runJob(f, job)

	got := stages(seen)
	assert.Contains(t, got, progress.StageScrapeFallback)
	assert.Equal(t, progress.StageComplete, got[len(got)-1])
	assert.Equal(t, 1, f.fallback.calls)
}

func TestRunnerStageFailureRecordsError(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.deployer.err = errors.New("deploy timeout")
	})

	job := Job{ID: "job-3", TenantID: "tenant-1", PlanID: "starter", URL: "https://acme.example.com", BusinessName: "Acme", LeadID: "lead-1"}
	seen := runJob(f, job)

	final := seen[len(seen)-1]
	assert.Equal(t, progress.StageError, final.Stage)
	require.NotNil(t, final.Err)
	assert.Equal(t, "deploy", final.Err.Step)
	assert.Contains(t, final.Err.Message, "deploy timeout")

	deployments, err := f.records.ListDeployments(context.Background())
	require.NoError(t, err)
	require.Len(t, deployments, 1)
	assert.Equal(t, store.DeploymentStatusFailed, deployments[0].Status)
	assert.Equal(t, "deploy timeout", deployments[0].ErrorMessage)
}

func TestRunnerPanicDoesNotEscape(t *testing.T) {
	f := newFixture(t, func(f *fixture) {
		f.deployer.panic = true
	})

	job := Job{ID: "job-4", TenantID: "tenant-1", PlanID: "starter", URL: "https://acme.example.com", BusinessName: "Acme", LeadID: "lead-1"}

	var seen []progress.Snapshot
	require.NotPanics(t, func() {
		seen = runJob(f, job)
	})

	final := seen[len(seen)-1]
	assert.Equal(t, progress.StageError, final.Stage)
	require.NotNil(t, final.Err)
	assert.Equal(t, "pipeline", final.Err.Step)
}

func TestRunnerFallbackBreakerOpensOnRepeatedFailures(t *testing.T) {
	log := logger.New()
	reg := breaker.NewRegistry(log, map[string]breaker.Config{
		BreakerScraperFallback: {FailureThreshold: 1, ResetTimeout: time.Minute},
	})

	f := &fixture{
		bus:      progress.NewBus(log, progress.WithCloseGrace(10*time.Millisecond)),
		records:  store.NewMemory(),
		enforcer: billing.NewEnforcer(billing.NewMemoryLedger(), log),
		scraper:  &stubScraper{err: errors.New("primary scraper 502")},
		fallback: &stubScraper{err: errors.New("fallback scraper down")},
		deployer: &stubDeployer{url: "https://unused.pages.dev"},
	}
	f.runner = NewRunner(reg, f.scraper, f.fallback, &stubAnalyzer{}, &stubGenerator{}, f.deployer, f.records, f.enforcer, log)

	// First run trips the fallback breaker.
	seen := runJob(f, Job{ID: "job-7", TenantID: "tenant-1", PlanID: "starter", URL: "https://a.example.com", BusinessName: "A", LeadID: "lead-1"})
	final := seen[len(seen)-1]
	require.Equal(t, progress.StageError, final.Stage)
	require.Equal(t, 1, f.fallback.calls)

	// Second run fails fast without touching the fallback service again.
	seen = runJob(f, Job{ID: "job-8", TenantID: "tenant-1", PlanID: "starter", URL: "https://b.example.com", BusinessName: "B", LeadID: "lead-1"})
	final = seen[len(seen)-1]
	assert.Equal(t, progress.StageError, final.Stage)
	require.NotNil(t, final.Err)
	assert.Contains(t, final.Err.Message, "Circuit breaker scraper_fallback_api OPEN")
	assert.Equal(t, 1, f.fallback.calls)
}

func TestRunnerBreakerOpenFailsFast(t *testing.T) {
	log := logger.New()
	reg := breaker.NewRegistry(log, map[string]breaker.Config{
		BreakerDeploy: {FailureThreshold: 1, ResetTimeout: time.Minute},
	})

	f := &fixture{
		bus:      progress.NewBus(log, progress.WithCloseGrace(10*time.Millisecond)),
		records:  store.NewMemory(),
		enforcer: billing.NewEnforcer(billing.NewMemoryLedger(), log),
		scraper:  &stubScraper{result: &ScrapeResult{Title: "Acme"}},
		deployer: &stubDeployer{err: errors.New("deploy down")},
	}
	f.runner = NewRunner(reg, f.scraper, nil, &stubAnalyzer{}, &stubGenerator{}, f.deployer, f.records, f.enforcer, log)

	// First run trips the deploy breaker.
	runJob(f, Job{ID: "job-5", TenantID: "tenant-1", PlanID: "starter", URL: "https://a.example.com", BusinessName: "A", LeadID: "lead-1"})
	require.Equal(t, 1, f.scraper.calls)

	// Second run fails fast at deploy without invoking the deployer again.
	seen := runJob(f, Job{ID: "job-6", TenantID: "tenant-1", PlanID: "starter", URL: "https://b.example.com", BusinessName: "B", LeadID: "lead-1"})
	final := seen[len(seen)-1]
	assert.Equal(t, progress.StageError, final.Stage)
	require.NotNil(t, final.Err)
	assert.Contains(t, final.Err.Message, "Circuit breaker deploy_api OPEN")
}
