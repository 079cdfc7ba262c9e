package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dizid/site-improver/internal/billing"
	"github.com/dizid/site-improver/internal/pipeline"
	"github.com/dizid/site-improver/pkg/api"
)

func TestBillingRollover(t *testing.T) {
	env := newTestEnv(t)
	tenantID := env.tenant.ID.String()

	if _, err := env.usage.IncrementUsage(context.Background(), tenantID, billing.MetricPipelineRuns, 7); err != nil {
		t.Fatalf("failed to preload usage: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/billing/rollover", strings.NewReader(`{"tenant_id":"`+tenantID+`"}`))
	env.handlers.BillingRollover(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	summary, err := env.usage.UsageSummary(context.Background(), tenantID, "starter")
	if err != nil {
		t.Fatalf("UsageSummary failed: %v", err)
	}
	if got := summary.Metrics[billing.MetricPipelineRuns].Current; got != 0 {
		t.Errorf("got %d runs after rollover, want 0", got)
	}
}

func TestBillingRollover_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/billing/rollover", strings.NewReader(`{}`))
	env.handlers.BillingRollover(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestListBreakers(t *testing.T) {
	env := newTestEnv(t)

	// Trip the scraper breaker into existence with one failure.
	_, _ = env.breakers.Execute(context.Background(), pipeline.BreakerScraper, func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})

	rec := httptest.NewRecorder()
	env.handlers.ListBreakers(rec, httptest.NewRequest(http.MethodGet, "/internal/breakers", nil))

	var resp api.ListBreakersResponse
	decodeBody(t, rec, &resp)
	if len(resp.Breakers) != 1 {
		t.Fatalf("got %d breakers, want 1", len(resp.Breakers))
	}
	b := resp.Breakers[0]
	if b.Name != pipeline.BreakerScraper {
		t.Errorf("got name %q", b.Name)
	}
	if b.State != "CLOSED" {
		t.Errorf("got state %q, want CLOSED", b.State)
	}
	if b.FailureCount != 1 {
		t.Errorf("got failure count %d, want 1", b.FailureCount)
	}
}

func TestResetBreaker(t *testing.T) {
	env := newTestEnv(t)

	// Open the breaker with consecutive failures past the default threshold.
	for i := 0; i < 5; i++ {
		_, _ = env.breakers.Execute(context.Background(), pipeline.BreakerDeploy, func(ctx context.Context) (any, error) {
			return nil, errors.New("boom")
		})
	}
	b, _ := env.breakers.Get(pipeline.BreakerDeploy)
	if b.State().State != "OPEN" {
		t.Fatalf("expected breaker OPEN, got %s", b.State().State)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/breakers/deploy_api/reset", nil)
	req.SetPathValue("name", pipeline.BreakerDeploy)
	env.handlers.ResetBreaker(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var resp api.BreakerStatus
	decodeBody(t, rec, &resp)
	if resp.State != "CLOSED" {
		t.Errorf("got state %q, want CLOSED", resp.State)
	}
	if resp.FailureCount != 0 {
		t.Errorf("got failure count %d, want 0", resp.FailureCount)
	}
}

func TestResetBreaker_Unknown(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/breakers/ghost/reset", nil)
	req.SetPathValue("name", "ghost")
	env.handlers.ResetBreaker(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, want 404", rec.Code)
	}
}
