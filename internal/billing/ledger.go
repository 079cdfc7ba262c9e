package billing

import (
	"context"
	"sync"
	"time"
)

// Usage holds the counters for one (tenant, period) key.
type Usage struct {
	TenantID  string
	Period    string
	Counts    map[Metric]int64
	UpdatedAt time.Time
}

// Count returns the counter for metric, zero if never incremented.
func (u Usage) Count(metric Metric) int64 {
	return u.Counts[metric]
}

// Ledger stores per-tenant, per-period usage counters. The in-memory
// implementation is the documented baseline (counters do not survive a
// restart); RedisLedger backs multi-instance deployments.
type Ledger interface {
	// Get returns the usage for (tenantID, period). A key that was never
	// written returns zero counts, not an error.
	Get(ctx context.Context, tenantID, period string) (Usage, error)

	// Increment atomically adds n to the metric counter, creating the key
	// lazily, and returns the new value.
	Increment(ctx context.Context, tenantID, period string, metric Metric, n int64) (int64, error)

	// Reset deletes the counters for (tenantID, period). Used by the
	// explicit billing-period rollover.
	Reset(ctx context.Context, tenantID, period string) error
}

// MemoryLedger is a process-local Ledger. Construct one per process and
// inject it; it is safe for concurrent use.
type MemoryLedger struct {
	mu    sync.Mutex
	usage map[string]*Usage // key: tenantID + "|" + period
	now   func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		usage: make(map[string]*Usage),
		now:   time.Now,
	}
}

func ledgerKey(tenantID, period string) string {
	return tenantID + "|" + period
}

func (l *MemoryLedger) Get(ctx context.Context, tenantID, period string) (Usage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.usage[ledgerKey(tenantID, period)]
	if !ok {
		return Usage{TenantID: tenantID, Period: period, Counts: map[Metric]int64{}}, nil
	}

	counts := make(map[Metric]int64, len(u.Counts))
	for m, n := range u.Counts {
		counts[m] = n
	}
	return Usage{TenantID: tenantID, Period: period, Counts: counts, UpdatedAt: u.UpdatedAt}, nil
}

func (l *MemoryLedger) Increment(ctx context.Context, tenantID, period string, metric Metric, n int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(tenantID, period)
	u, ok := l.usage[key]
	if !ok {
		u = &Usage{TenantID: tenantID, Period: period, Counts: make(map[Metric]int64)}
		l.usage[key] = u
	}
	u.Counts[metric] += n
	u.UpdatedAt = l.now()
	return u.Counts[metric], nil
}

func (l *MemoryLedger) Reset(ctx context.Context, tenantID, period string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.usage, ledgerKey(tenantID, period))
	return nil
}
