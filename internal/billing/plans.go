// Package billing meters per-tenant usage and enforces plan quotas and
// overage spending caps.
package billing

import "time"

// Metric identifies one metered resource.
type Metric string

const (
	MetricPipelineRuns    Metric = "pipeline_runs"
	MetricEmailsSent      Metric = "emails_sent"
	MetricLeadsDiscovered Metric = "leads_discovered"
)

// Metrics lists every metered resource.
var Metrics = []Metric{MetricPipelineRuns, MetricEmailsSent, MetricLeadsDiscovered}

// Unlimited marks a plan limit with no ceiling. An unlimited metric never
// counts toward spending-cap overage.
const Unlimited int64 = -1

// Plan defines per-metric limits and overage pricing for a subscription
// tier.
type Plan struct {
	ID           string
	Limits       map[Metric]int64 // Unlimited (-1) = no ceiling
	OverageRates map[Metric]int64 // cents per unit beyond the limit
}

// Limit returns the plan's ceiling for metric, defaulting to 0 for unknown
// metrics so nothing slips through unmetered.
func (p Plan) Limit(metric Metric) int64 {
	if limit, ok := p.Limits[metric]; ok {
		return limit
	}
	return 0
}

// OverageRate returns the per-unit overage price in cents.
func (p Plan) OverageRate(metric Metric) int64 {
	return p.OverageRates[metric]
}

// DefaultPlans returns the built-in subscription tiers. Deployments override
// these via configuration.
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		"starter": {
			ID: "starter",
			Limits: map[Metric]int64{
				MetricPipelineRuns:    10,
				MetricEmailsSent:      50,
				MetricLeadsDiscovered: 100,
			},
			OverageRates: map[Metric]int64{
				MetricPipelineRuns:    200,
				MetricEmailsSent:      10,
				MetricLeadsDiscovered: 5,
			},
		},
		"growth": {
			ID: "growth",
			Limits: map[Metric]int64{
				MetricPipelineRuns:    50,
				MetricEmailsSent:      500,
				MetricLeadsDiscovered: 1000,
			},
			OverageRates: map[Metric]int64{
				MetricPipelineRuns:    150,
				MetricEmailsSent:      8,
				MetricLeadsDiscovered: 3,
			},
		},
		"scale": {
			ID: "scale",
			Limits: map[Metric]int64{
				MetricPipelineRuns:    Unlimited,
				MetricEmailsSent:      Unlimited,
				MetricLeadsDiscovered: Unlimited,
			},
			OverageRates: map[Metric]int64{},
		},
	}
}

// DefaultPlanID is assigned to tenants created without an explicit plan.
const DefaultPlanID = "starter"

// CurrentPeriod derives the billing period key (YYYY-MM) from wall-clock
// time. Period change is handled by keying alone: a new month simply creates
// a fresh key and the previous one goes dormant.
func CurrentPeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}
