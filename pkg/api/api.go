// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the server.
package api

import "time"

// CreateTenantRequest is the request body for creating a new tenant.
type CreateTenantRequest struct {
	Name   string `json:"name"`
	PlanID string `json:"plan_id,omitempty"`
}

// CreateTenantResponse is the response body after creating a tenant.
type CreateTenantResponse struct {
	ID     string `json:"tenant_id"`
	Name   string `json:"name"`
	PlanID string `json:"plan_id"`
	ApiKey string `json:"api_key"`
}

// RunPipelineRequest is the request body for submitting a pipeline run.
type RunPipelineRequest struct {
	URL          string `json:"url"`
	BusinessName string `json:"business_name,omitempty"`
	Template     string `json:"template,omitempty"`
	LeadID       string `json:"lead_id,omitempty"`
}

// RunPipelineResponse is returned immediately; the run proceeds in the
// background and progress is available on the events endpoint.
type RunPipelineResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusResponse is the response body for pipeline status queries.
// It mirrors the SSE event payload so polling clients see the same shape.
type JobStatusResponse struct {
	JobID    string         `json:"job_id"`
	Stage    string         `json:"stage"`
	Progress int            `json:"progress"`
	Label    string         `json:"label,omitempty"`
	Error    *JobError      `json:"error,omitempty"`
	Result   map[string]any `json:"result,omitempty"`
}

// JobError describes a failed pipeline run.
type JobError struct {
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
}

// LeadRequest is the request body for creating or updating a lead.
type LeadRequest struct {
	BusinessName string `json:"business_name"`
	URL          string `json:"url"`
	Email        string `json:"email,omitempty"`
	Status       string `json:"status,omitempty"`
}

// LeadResponse represents a lead in API responses.
type LeadResponse struct {
	ID           string    `json:"id"`
	BusinessName string    `json:"business_name"`
	URL          string    `json:"url"`
	Email        string    `json:"email,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListLeadsResponse is the response body for lead listings.
type ListLeadsResponse struct {
	Leads []LeadResponse `json:"leads"`
}

// LeadStatsResponse aggregates the caller's leads by status.
type LeadStatsResponse struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// DeploymentResponse represents a deployed site in API responses.
type DeploymentResponse struct {
	ID           string    `json:"id"`
	LeadID       string    `json:"lead_id,omitempty"`
	JobID        string    `json:"job_id,omitempty"`
	URL          string    `json:"url"`
	DeployedURL  string    `json:"deployed_url,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListDeploymentsResponse is the response body for deployment listings.
type ListDeploymentsResponse struct {
	Deployments []DeploymentResponse `json:"deployments"`
}

// MetricUsage reports one metric inside a usage summary.
type MetricUsage struct {
	Current   int64 `json:"current"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
	Unlimited bool  `json:"unlimited"`
}

// SpendingStatus reports overage spending against the tenant's cap.
type SpendingStatus struct {
	CapCents       int64   `json:"cap_cents"`
	OverageCents   int64   `json:"overage_cents"`
	RemainingCents int64   `json:"remaining_cents"`
	PercentUsed    float64 `json:"percent_used"`
	Exceeded       bool    `json:"exceeded"`
}

// UsageSummaryResponse is the response body for GET /usage.
type UsageSummaryResponse struct {
	TenantID string                 `json:"tenant_id"`
	PlanID   string                 `json:"plan_id"`
	Period   string                 `json:"period"`
	Metrics  map[string]MetricUsage `json:"metrics"`
	Spending SpendingStatus         `json:"spending"`
}

// BreakerStatus is one circuit breaker snapshot on the internal surface.
type BreakerStatus struct {
	Name         string     `json:"name"`
	State        string     `json:"state"`
	FailureCount int        `json:"failure_count"`
	SuccessCount int        `json:"success_count"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}

// ListBreakersResponse is the response body for GET /internal/breakers.
type ListBreakersResponse struct {
	Breakers []BreakerStatus `json:"breakers"`
}

// RolloverRequest is the payload of the billing period-change webhook.
type RolloverRequest struct {
	TenantID string `json:"tenant_id"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error codes surfaced to clients.
const (
	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeSpendingCapExceeded = "SPENDING_CAP_EXCEEDED"
	CodeCircuitOpen         = "CIRCUIT_OPEN"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
)
