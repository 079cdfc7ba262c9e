package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dizid/site-improver/internal/billing"
	"github.com/dizid/site-improver/internal/pipeline"
	"github.com/dizid/site-improver/internal/progress"
	"github.com/dizid/site-improver/internal/store"
	"github.com/dizid/site-improver/pkg/api"

	"github.com/google/uuid"
)

// RunPipeline handles POST /pipeline.
// It checks quota and spending cap, registers the job with the progress bus
// and hands it to the worker pool. The response returns immediately; clients
// follow progress on the status or events endpoints.
func (h *Handlers) RunPipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RunPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", api.CodeValidation, http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		h.httpError(w, "url is required", api.CodeValidation, http.StatusBadRequest)
		return
	}
	if u, err := url.ParseRequestURI(req.URL); err != nil || u.Host == "" {
		h.httpError(w, "url must be absolute", api.CodeValidation, http.StatusBadRequest)
		return
	}

	tenant, ok := store.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", "", http.StatusUnauthorized)
		return
	}
	tenantID := tenant.ID.String()

	if err := h.usage.EnforceQuota(ctx, tenantID, billing.MetricPipelineRuns, tenant.PlanID); err != nil {
		h.domainError(w, err)
		return
	}

	// Cap check first, then the increment; triggered alerts are logged here
	// and surfaced through the usage endpoint.
	alerts, err := h.usage.IncrementWithCapCheck(ctx, tenantID, billing.MetricPipelineRuns, tenant.PlanID)
	if err != nil {
		h.domainError(w, err)
		return
	}
	for _, a := range alerts {
		h.logger.Warn("spending alert triggered",
			"tenant_id", a.TenantID,
			"period", a.Period,
			"threshold", a.Threshold,
			"percent_used", a.PercentUsed,
		)
	}

	jobID := uuid.NewString()
	tracker := h.bus.Track(jobID)
	tracker.Queued("Waiting for a worker")

	job := pipeline.Job{
		ID:           jobID,
		TenantID:     tenantID,
		PlanID:       tenant.PlanID,
		URL:          req.URL,
		BusinessName: req.BusinessName,
		Template:     req.Template,
		LeadID:       req.LeadID,
		Tracker:      tracker,
	}
	if err := h.pool.Submit(job); err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			tracker.Error(errors.New("server busy, try again later"), "queue")
			w.Header().Set("Retry-After", "5")
			h.httpError(w, "Server busy, try again later", "", http.StatusServiceUnavailable)
			return
		}
		h.domainError(w, err)
		return
	}

	h.respondJson(w, http.StatusAccepted, api.RunPipelineResponse{
		JobID:  jobID,
		Status: "processing",
	})
}

// JobStatus handles GET /pipeline/{id}/status.
// An unknown job reports the synthetic waiting stage so clients that race
// the submission response can poll safely.
func (h *Handlers) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	snap, ok := h.bus.Status(jobID)
	if !ok {
		h.respondJson(w, http.StatusOK, api.JobStatusResponse{
			JobID: jobID,
			Stage: string(progress.StageWaiting),
		})
		return
	}
	h.respondJson(w, http.StatusOK, snapshotToStatus(snap))
}

// PipelineEvents handles GET /pipeline/{id}/events as an SSE stream.
// The current snapshot is sent immediately, then every stage transition as a
// data frame. Keepalive comments hold idle proxies open. The stream ends
// shortly after a terminal frame or when the client disconnects; either way
// the subscription is removed.
func (h *Handlers) PipelineEvents(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.httpError(w, "Streaming unsupported", "", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Tells nginx and friends not to buffer the stream.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch, cancel := h.bus.Subscribe(jobID)
	defer cancel()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	writeFrame := func(snap progress.Snapshot) bool {
		payload, err := json.Marshal(snapshotToStatus(snap))
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, open := <-ch:
			if !open {
				// Bus closed the job after its terminal grace period.
				return
			}
			if !writeFrame(snap) {
				return
			}
		}
	}
}

func snapshotToStatus(snap progress.Snapshot) api.JobStatusResponse {
	resp := api.JobStatusResponse{
		JobID:    snap.JobID,
		Stage:    string(snap.Stage),
		Progress: snap.Progress,
		Label:    snap.Label,
		Result:   snap.Result,
	}
	if snap.Err != nil {
		resp.Error = &api.JobError{
			Message: snap.Err.Message,
			Step:    snap.Err.Step,
		}
	}
	return resp
}
