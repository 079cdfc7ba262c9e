package billing

import "fmt"

// QuotaExceededError is returned when a hard per-metric quota blocks an
// operation. It carries the quota snapshot so callers can render an
// "upgrade your plan" message without re-querying.
type QuotaExceededError struct {
	Status QuotaStatus
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d of %d used this period",
		e.Status.Metric, e.Status.Current, e.Status.Limit)
}

// Code returns the stable client-facing error code.
func (e *QuotaExceededError) Code() string { return "QUOTA_EXCEEDED" }

// SpendingCapError is returned when overage charges have exceeded the
// tenant's monetary cap.
type SpendingCapError struct {
	Status SpendingStatus
}

func (e *SpendingCapError) Error() string {
	return fmt.Sprintf("spending cap exceeded: %d cents of overage against a %d cent cap",
		e.Status.OverageCents, e.Status.CapCents)
}

// Code returns the stable client-facing error code.
func (e *SpendingCapError) Code() string { return "SPENDING_CAP_EXCEEDED" }
