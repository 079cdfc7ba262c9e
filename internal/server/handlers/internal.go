package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dizid/site-improver/pkg/api"
)

// BillingRollover handles POST /internal/billing/rollover.
// Called by the billing provider's period-change webhook; this is the only
// path that resets a tenant's ledger and clears its alert dedup state.
func (h *Handlers) BillingRollover(w http.ResponseWriter, r *http.Request) {
	var req api.RolloverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", api.CodeValidation, http.StatusBadRequest)
		return
	}
	if req.TenantID == "" {
		h.httpError(w, "tenant_id is required", api.CodeValidation, http.StatusBadRequest)
		return
	}

	if err := h.usage.RolloverPeriod(r.Context(), req.TenantID); err != nil {
		h.domainError(w, err)
		return
	}

	h.logger.Info("billing period rolled over", "tenant_id", req.TenantID)
	h.respondJson(w, http.StatusOK, map[string]string{"status": "rolled_over"})
}

// ListBreakers handles GET /internal/breakers.
func (h *Handlers) ListBreakers(w http.ResponseWriter, r *http.Request) {
	states := h.breakers.States()

	resp := api.ListBreakersResponse{Breakers: make([]api.BreakerStatus, 0, len(states))}
	for _, s := range states {
		resp.Breakers = append(resp.Breakers, api.BreakerStatus{
			Name:         s.Name,
			State:        string(s.State),
			FailureCount: s.FailureCount,
			SuccessCount: s.SuccessCount,
			LastFailure:  s.LastFailureTime,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

// ResetBreaker handles POST /internal/breakers/{name}/reset.
// Operator override: closes the breaker immediately without waiting for the
// cooldown to elapse.
func (h *Handlers) ResetBreaker(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	b, ok := h.breakers.Get(name)
	if !ok {
		h.httpError(w, "Unknown breaker", api.CodeNotFound, http.StatusNotFound)
		return
	}
	b.Reset()

	h.logger.Info("circuit breaker manually reset", "breaker", name)
	snap := b.State()
	h.respondJson(w, http.StatusOK, api.BreakerStatus{
		Name:         snap.Name,
		State:        string(snap.State),
		FailureCount: snap.FailureCount,
		SuccessCount: snap.SuccessCount,
		LastFailure:  snap.LastFailureTime,
	})
}
