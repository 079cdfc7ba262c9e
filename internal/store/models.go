// Package store contains the persistence layer for site-improver.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated customer account. All records and usage are
// scoped to exactly one tenant.
type Tenant struct {
	ID             uuid.UUID
	Name           string
	PlanID         string
	RateLimit      int // requests per second, 0 = unlimited
	RateLimitBurst int
	CreatedAt      time.Time
}

// Lead represents a discovered business prospect.
//
// TenantID may be empty on rows created before tenant scoping was
// introduced; those are visible to every tenant for backward compatibility.
type Lead struct {
	ID           string
	TenantID     string
	BusinessName string
	URL          string
	Email        string
	Status       LeadStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LeadStatus tracks a lead through the outreach funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusRejected  LeadStatus = "rejected"
)

// Deployment represents one rebuilt site produced by a pipeline run.
// TenantID follows the same legacy-unscoped rule as Lead.
type Deployment struct {
	ID           string
	TenantID     string
	LeadID       string
	JobID        string
	URL          string
	DeployedURL  string
	Status       DeploymentStatus
	ErrorMessage string
	CreatedAt    time.Time
}

// DeploymentStatus is the final disposition of a pipeline run.
type DeploymentStatus string

const (
	DeploymentStatusDeployed DeploymentStatus = "deployed"
	DeploymentStatusFailed   DeploymentStatus = "failed"
)
