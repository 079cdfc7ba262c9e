package handlers

import (
	"net/http"

	"github.com/dizid/site-improver/internal/store"
	"github.com/dizid/site-improver/pkg/api"
)

// GetUsage handles GET /usage. It reports every metric's quota state plus the
// spending position for the caller's current billing period.
func (h *Handlers) GetUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := store.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", "", http.StatusUnauthorized)
		return
	}

	summary, err := h.usage.UsageSummary(ctx, tenant.ID.String(), tenant.PlanID)
	if err != nil {
		h.domainError(w, err)
		return
	}

	resp := api.UsageSummaryResponse{
		TenantID: summary.TenantID,
		PlanID:   summary.PlanID,
		Period:   summary.Period,
		Metrics:  make(map[string]api.MetricUsage, len(summary.Metrics)),
		Spending: api.SpendingStatus{
			CapCents:       summary.Spending.CapCents,
			OverageCents:   summary.Spending.OverageCents,
			RemainingCents: summary.Spending.RemainingCents,
			PercentUsed:    summary.Spending.PercentUsed,
			Exceeded:       summary.Spending.Exceeded,
		},
	}
	for metric, status := range summary.Metrics {
		resp.Metrics[string(metric)] = api.MetricUsage{
			Current:   status.Current,
			Limit:     status.Limit,
			Remaining: status.Remaining,
			Unlimited: status.Unlimited,
		}
	}
	h.respondJson(w, http.StatusOK, resp)
}
