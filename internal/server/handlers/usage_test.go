package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dizid/site-improver/internal/billing"
	"github.com/dizid/site-improver/pkg/api"
)

func TestGetUsage(t *testing.T) {
	env := newTestEnv(t)
	tenantID := env.tenant.ID.String()

	for i := 0; i < 3; i++ {
		if _, err := env.usage.IncrementUsage(context.Background(), tenantID, billing.MetricPipelineRuns, 1); err != nil {
			t.Fatalf("failed to preload usage: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	env.handlers.GetUsage(rec, env.authedRequest(http.MethodGet, "/usage", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	var resp api.UsageSummaryResponse
	decodeBody(t, rec, &resp)

	if resp.TenantID != tenantID {
		t.Errorf("got tenant %q, want %q", resp.TenantID, tenantID)
	}
	if resp.PlanID != "starter" {
		t.Errorf("got plan %q, want starter", resp.PlanID)
	}

	runs := resp.Metrics["pipeline_runs"]
	if runs.Current != 3 {
		t.Errorf("got current %d, want 3", runs.Current)
	}
	if runs.Limit != 10 {
		t.Errorf("got limit %d, want 10", runs.Limit)
	}
	if runs.Remaining != 7 {
		t.Errorf("got remaining %d, want 7", runs.Remaining)
	}

	if resp.Spending.CapCents != billing.DefaultCapCents {
		t.Errorf("got cap %d, want %d", resp.Spending.CapCents, billing.DefaultCapCents)
	}
	if resp.Spending.Exceeded {
		t.Error("spending cap should not be exceeded")
	}
}

func TestGetUsage_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handlers.GetUsage(rec, httptest.NewRequest(http.MethodGet, "/usage", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", rec.Code)
	}
}
