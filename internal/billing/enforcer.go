package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultCapCents is the default overage spending cap: $100.
const DefaultCapCents int64 = 10000

// DefaultAlertThresholds are the cap percentages at which alerts fire.
var DefaultAlertThresholds = []int{50, 80, 95}

// QuotaStatus is the result of a quota check.
type QuotaStatus struct {
	Metric    Metric
	Allowed   bool
	Unlimited bool
	Limit     int64
	Current   int64
	Remaining int64
}

// SpendingStatus is the result of a spending-cap check.
type SpendingStatus struct {
	CapCents       int64
	OverageCents   int64
	RemainingCents int64
	PercentUsed    float64
	Exceeded       bool
}

// Alert is a spending threshold crossing. Each (tenant, period, threshold)
// fires at most once until an explicit period rollover.
type Alert struct {
	TenantID    string
	Period      string
	Threshold   int
	PercentUsed float64
}

// Summary aggregates a tenant's usage and spending state for one period.
type Summary struct {
	TenantID string
	PlanID   string
	Period   string
	Metrics  map[Metric]QuotaStatus
	Spending SpendingStatus
}

// Enforcer reads plan limits and the usage ledger to allow or deny
// operations and to track overage spending. Construct one per process and
// inject it; alert dedup state lives here, not in package globals.
type Enforcer struct {
	ledger Ledger
	plans  map[string]Plan
	logger *slog.Logger

	defaultCapCents int64
	thresholds      []int

	mu           sync.Mutex
	capOverrides map[string]int64
	alertsSent   map[string]bool // tenantID|period|threshold

	now func() time.Time
}

// EnforcerOption configures an Enforcer.
type EnforcerOption func(*Enforcer)

// WithPlans replaces the built-in plan table.
func WithPlans(plans map[string]Plan) EnforcerOption {
	return func(e *Enforcer) {
		if len(plans) > 0 {
			e.plans = plans
		}
	}
}

// WithDefaultCap overrides the default spending cap in cents.
func WithDefaultCap(cents int64) EnforcerOption {
	return func(e *Enforcer) {
		if cents > 0 {
			e.defaultCapCents = cents
		}
	}
}

// WithAlertThresholds overrides the cap alert percentages.
func WithAlertThresholds(thresholds []int) EnforcerOption {
	return func(e *Enforcer) {
		if len(thresholds) > 0 {
			e.thresholds = thresholds
		}
	}
}

// NewEnforcer creates an enforcer over the given ledger.
func NewEnforcer(ledger Ledger, logger *slog.Logger, opts ...EnforcerOption) *Enforcer {
	e := &Enforcer{
		ledger:          ledger,
		plans:           DefaultPlans(),
		logger:          logger,
		defaultCapCents: DefaultCapCents,
		thresholds:      DefaultAlertThresholds,
		capOverrides:    make(map[string]int64),
		alertsSent:      make(map[string]bool),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Enforcer) plan(planID string) Plan {
	if p, ok := e.plans[planID]; ok {
		return p
	}
	return e.plans[DefaultPlanID]
}

func (e *Enforcer) period() string {
	return CurrentPeriod(e.now())
}

// SetSpendingCap overrides the cap for one tenant, in cents.
func (e *Enforcer) SetSpendingCap(tenantID string, capCents int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.capOverrides[tenantID] = capCents
}

func (e *Enforcer) capFor(tenantID string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cap, ok := e.capOverrides[tenantID]; ok {
		return cap
	}
	return e.defaultCapCents
}

// IncrementUsage adds n to the tenant's counter for the current period.
func (e *Enforcer) IncrementUsage(ctx context.Context, tenantID string, metric Metric, n int64) (int64, error) {
	return e.ledger.Increment(ctx, tenantID, e.period(), metric, n)
}

// CheckQuota reports whether the tenant may consume one more unit of metric
// under its plan. A limit of Unlimited always allows.
func (e *Enforcer) CheckQuota(ctx context.Context, tenantID string, metric Metric, planID string) (QuotaStatus, error) {
	p := e.plan(planID)
	limit := p.Limit(metric)

	if limit == Unlimited {
		return QuotaStatus{Metric: metric, Allowed: true, Unlimited: true, Limit: Unlimited}, nil
	}

	usage, err := e.ledger.Get(ctx, tenantID, e.period())
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("check quota: %w", err)
	}

	current := usage.Count(metric)
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{
		Metric:    metric,
		Allowed:   current < limit,
		Limit:     limit,
		Current:   current,
		Remaining: remaining,
	}, nil
}

// EnforceQuota returns *QuotaExceededError when the metric is at or over its
// plan limit.
func (e *Enforcer) EnforceQuota(ctx context.Context, tenantID string, metric Metric, planID string) error {
	status, err := e.CheckQuota(ctx, tenantID, metric, planID)
	if err != nil {
		return err
	}
	if !status.Allowed {
		return &QuotaExceededError{Status: status}
	}
	return nil
}

// CalculateOverages prices usage beyond plan limits: for each metric,
// max(used-limit, 0) * unit rate. Unlimited metrics contribute nothing.
func (e *Enforcer) CalculateOverages(ctx context.Context, tenantID, planID string) (map[Metric]int64, int64, error) {
	p := e.plan(planID)

	usage, err := e.ledger.Get(ctx, tenantID, e.period())
	if err != nil {
		return nil, 0, fmt.Errorf("calculate overages: %w", err)
	}

	breakdown := make(map[Metric]int64)
	var totalCents int64
	for _, metric := range Metrics {
		limit := p.Limit(metric)
		if limit == Unlimited {
			continue
		}
		over := usage.Count(metric) - limit
		if over <= 0 {
			continue
		}
		cents := over * p.OverageRate(metric)
		breakdown[metric] = cents
		totalCents += cents
	}
	return breakdown, totalCents, nil
}

// CheckSpendingCap compares priced overage against the tenant's cap.
func (e *Enforcer) CheckSpendingCap(ctx context.Context, tenantID, planID string) (SpendingStatus, error) {
	_, totalCents, err := e.CalculateOverages(ctx, tenantID, planID)
	if err != nil {
		return SpendingStatus{}, err
	}

	cap := e.capFor(tenantID)
	remaining := cap - totalCents
	if remaining < 0 {
		remaining = 0
	}
	var percent float64
	if cap > 0 {
		percent = float64(totalCents) / float64(cap) * 100
	}
	return SpendingStatus{
		CapCents:       cap,
		OverageCents:   totalCents,
		RemainingCents: remaining,
		PercentUsed:    percent,
		Exceeded:       totalCents > cap,
	}, nil
}

// EnforceSpendingCap returns *SpendingCapError when the cap is exceeded.
func (e *Enforcer) EnforceSpendingCap(ctx context.Context, tenantID, planID string) error {
	status, err := e.CheckSpendingCap(ctx, tenantID, planID)
	if err != nil {
		return err
	}
	if status.Exceeded {
		return &SpendingCapError{Status: status}
	}
	return nil
}

func alertKey(tenantID, period string, threshold int) string {
	return fmt.Sprintf("%s|%s|%d", tenantID, period, threshold)
}

// CheckSpendingAlerts returns newly crossed cap thresholds. Repeated calls
// with usage held above a threshold return it only once per period; the
// dedup map is cleared only by RolloverPeriod.
func (e *Enforcer) CheckSpendingAlerts(ctx context.Context, tenantID, planID string) ([]Alert, error) {
	status, err := e.CheckSpendingCap(ctx, tenantID, planID)
	if err != nil {
		return nil, err
	}

	period := e.period()

	e.mu.Lock()
	defer e.mu.Unlock()

	var fired []Alert
	for _, threshold := range e.thresholds {
		if status.PercentUsed < float64(threshold) {
			continue
		}
		key := alertKey(tenantID, period, threshold)
		if e.alertsSent[key] {
			continue
		}
		e.alertsSent[key] = true
		fired = append(fired, Alert{
			TenantID:    tenantID,
			Period:      period,
			Threshold:   threshold,
			PercentUsed: status.PercentUsed,
		})
	}

	for _, a := range fired {
		e.logger.Warn("spending cap alert",
			"tenant_id", a.TenantID,
			"threshold_pct", a.Threshold,
			"percent_used", fmt.Sprintf("%.1f", a.PercentUsed),
		)
	}
	return fired, nil
}

// IncrementWithCapCheck is the composite used on metered operations: the cap
// is checked before counting (a tenant already over cap must not add usage),
// then the increment lands, then newly triggered alerts are returned.
func (e *Enforcer) IncrementWithCapCheck(ctx context.Context, tenantID string, metric Metric, planID string) ([]Alert, error) {
	if err := e.EnforceSpendingCap(ctx, tenantID, planID); err != nil {
		return nil, err
	}
	if _, err := e.IncrementUsage(ctx, tenantID, metric, 1); err != nil {
		return nil, err
	}
	return e.CheckSpendingAlerts(ctx, tenantID, planID)
}

// UsageSummary reports every metric plus spending state for the tenant's
// current period.
func (e *Enforcer) UsageSummary(ctx context.Context, tenantID, planID string) (Summary, error) {
	period := e.period()
	p := e.plan(planID)

	usage, err := e.ledger.Get(ctx, tenantID, period)
	if err != nil {
		return Summary{}, fmt.Errorf("usage summary: %w", err)
	}

	metrics := make(map[Metric]QuotaStatus, len(Metrics))
	for _, metric := range Metrics {
		limit := p.Limit(metric)
		current := usage.Count(metric)
		status := QuotaStatus{Metric: metric, Limit: limit, Current: current}
		if limit == Unlimited {
			status.Allowed = true
			status.Unlimited = true
		} else {
			status.Allowed = current < limit
			if rem := limit - current; rem > 0 {
				status.Remaining = rem
			}
		}
		metrics[metric] = status
	}

	spending, err := e.CheckSpendingCap(ctx, tenantID, planID)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		TenantID: tenantID,
		PlanID:   p.ID,
		Period:   period,
		Metrics:  metrics,
		Spending: spending,
	}, nil
}

// RolloverPeriod starts a fresh billing period for the tenant: counters for
// the current period key are reset and alert dedup state is cleared. It is
// invoked by an explicit billing-period-change event, never implicitly by
// reads.
func (e *Enforcer) RolloverPeriod(ctx context.Context, tenantID string) error {
	period := e.period()
	if err := e.ledger.Reset(ctx, tenantID, period); err != nil {
		return fmt.Errorf("rollover period: %w", err)
	}

	e.mu.Lock()
	for _, threshold := range e.thresholds {
		delete(e.alertsSent, alertKey(tenantID, period, threshold))
	}
	e.mu.Unlock()

	e.logger.Info("billing period rolled over", "tenant_id", tenantID, "period", period)
	return nil
}
