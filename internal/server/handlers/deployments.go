package handlers

import (
	"net/http"

	"github.com/dizid/site-improver/internal/store"
	"github.com/dizid/site-improver/pkg/api"
)

func deploymentToResponse(d *store.Deployment) api.DeploymentResponse {
	return api.DeploymentResponse{
		ID:           d.ID,
		LeadID:       d.LeadID,
		JobID:        d.JobID,
		URL:          d.URL,
		DeployedURL:  d.DeployedURL,
		Status:       string(d.Status),
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
	}
}

// ListDeployments handles GET /deployments.
func (h *Handlers) ListDeployments(w http.ResponseWriter, r *http.Request) {
	deployments, err := h.scoped(r.Context()).ListDeployments(r.Context())
	if err != nil {
		h.domainError(w, err)
		return
	}

	resp := api.ListDeploymentsResponse{Deployments: make([]api.DeploymentResponse, 0, len(deployments))}
	for _, d := range deployments {
		resp.Deployments = append(resp.Deployments, deploymentToResponse(d))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetDeployment handles GET /deployments/{id}.
func (h *Handlers) GetDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := h.scoped(r.Context()).GetDeployment(r.Context(), r.PathValue("id"))
	if err != nil {
		h.domainError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, deploymentToResponse(d))
}

// DeleteDeployment handles DELETE /deployments/{id}.
func (h *Handlers) DeleteDeployment(w http.ResponseWriter, r *http.Request) {
	if err := h.scoped(r.Context()).DeleteDeployment(r.Context(), r.PathValue("id")); err != nil {
		h.domainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
