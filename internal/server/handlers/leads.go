package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dizid/site-improver/internal/store"
	"github.com/dizid/site-improver/pkg/api"
)

func leadToResponse(l *store.Lead) api.LeadResponse {
	return api.LeadResponse{
		ID:           l.ID,
		BusinessName: l.BusinessName,
		URL:          l.URL,
		Email:        l.Email,
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// ListLeads handles GET /leads.
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.scoped(r.Context()).ListLeads(r.Context())
	if err != nil {
		h.domainError(w, err)
		return
	}

	resp := api.ListLeadsResponse{Leads: make([]api.LeadResponse, 0, len(leads))}
	for _, l := range leads {
		resp.Leads = append(resp.Leads, leadToResponse(l))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// CreateLead handles POST /leads.
func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req api.LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", api.CodeValidation, http.StatusBadRequest)
		return
	}
	if req.BusinessName == "" || req.URL == "" {
		h.httpError(w, "business_name and url are required", api.CodeValidation, http.StatusBadRequest)
		return
	}

	lead := &store.Lead{
		BusinessName: req.BusinessName,
		URL:          req.URL,
		Email:        req.Email,
		Status:       store.LeadStatus(req.Status),
	}
	if err := h.scoped(r.Context()).CreateLead(r.Context(), lead); err != nil {
		h.domainError(w, err)
		return
	}
	h.respondJson(w, http.StatusCreated, leadToResponse(lead))
}

// GetLead handles GET /leads/{id}.
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.scoped(r.Context()).GetLead(r.Context(), r.PathValue("id"))
	if err != nil {
		h.domainError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, leadToResponse(lead))
}

// UpdateLead handles PUT /leads/{id}.
func (h *Handlers) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var req api.LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", api.CodeValidation, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	scoped := h.scoped(ctx)

	lead, err := scoped.GetLead(ctx, r.PathValue("id"))
	if err != nil {
		h.domainError(w, err)
		return
	}

	if req.BusinessName != "" {
		lead.BusinessName = req.BusinessName
	}
	if req.URL != "" {
		lead.URL = req.URL
	}
	if req.Email != "" {
		lead.Email = req.Email
	}
	if req.Status != "" {
		lead.Status = store.LeadStatus(req.Status)
	}

	if err := scoped.UpdateLead(ctx, lead); err != nil {
		h.domainError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, leadToResponse(lead))
}

// DeleteLead handles DELETE /leads/{id}.
func (h *Handlers) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := h.scoped(r.Context()).DeleteLead(r.Context(), r.PathValue("id")); err != nil {
		h.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LeadStats handles GET /leads/stats.
func (h *Handlers) LeadStats(w http.ResponseWriter, r *http.Request) {
	total, byStatus, err := h.scoped(r.Context()).LeadStats(r.Context())
	if err != nil {
		h.domainError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, api.LeadStatsResponse{
		Total:    total,
		ByStatus: byStatus,
	})
}
