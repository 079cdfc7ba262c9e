package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dizid/site-improver/internal/auth"
	"github.com/dizid/site-improver/internal/billing"
	"github.com/dizid/site-improver/internal/store"
	"github.com/dizid/site-improver/pkg/api"

	"github.com/google/uuid"
)

// CreateTenant handles POST /tenants (Admin Only).
// It generates a new API Key, hashes it for storage, and returns the raw key ONCE.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid JSON", api.CodeValidation, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		h.httpError(w, "Name is required", api.CodeValidation, http.StatusBadRequest)
		return
	}

	planID := req.PlanID
	if planID == "" {
		planID = billing.DefaultPlanID
	}

	// Generate a secure random API key (32 bytes)
	rawKeyBytes := make([]byte, 32)
	if _, err := rand.Read(rawKeyBytes); err != nil {
		h.httpError(w, "Entropy failure", "", http.StatusInternalServerError)
		return
	}
	apiKey := "si_" + hex.EncodeToString(rawKeyBytes)

	hashedKey := auth.HashKey(apiKey)

	tenant := &store.Tenant{
		ID:        uuid.New(),
		Name:      req.Name,
		PlanID:    planID,
		CreatedAt: time.Now(),
	}

	if err := h.store.CreateTenant(ctx, tenant, hashedKey); err != nil {
		h.domainError(w, err)
		return
	}

	// Return the Raw Key (This is the only time the user sees it)
	resp := api.CreateTenantResponse{
		ID:     tenant.ID.String(),
		Name:   tenant.Name,
		PlanID: tenant.PlanID,
		ApiKey: apiKey,
	}
	h.respondJson(w, http.StatusCreated, resp)
}
