package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config holds the tunables for one protected dependency.
type Config struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// DefaultConfig is used for dependencies with no explicit configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
	}
}

// Registry owns the per-dependency breakers. It is constructed once at
// process start and injected wherever external calls are made, so tests can
// create isolated instances.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	configs  map[string]Config
	logger   *slog.Logger
}

// NewRegistry creates a registry. configs maps dependency names (for example
// "scraper_api", "ai_api", "deploy_api") to their tunables; unlisted names
// fall back to DefaultConfig.
func NewRegistry(logger *slog.Logger, configs map[string]Config) *Registry {
	if configs == nil {
		configs = make(map[string]Config)
	}
	return &Registry{
		breakers: make(map[string]*Breaker),
		configs:  configs,
		logger:   logger,
	}
}

// GetOrCreate returns the breaker for the named dependency, creating it on
// first use.
func (r *Registry) GetOrCreate(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock.
	if b, ok = r.breakers[name]; ok {
		return b
	}

	cfg, ok := r.configs[name]
	if !ok {
		cfg = DefaultConfig()
	}
	b = New(name, cfg.FailureThreshold, cfg.ResetTimeout)
	r.breakers[name] = b

	r.logger.Info("created circuit breaker",
		"breaker", name,
		"failure_threshold", cfg.FailureThreshold,
		"reset_timeout", cfg.ResetTimeout.String(),
	)
	return b
}

// Execute runs fn through the named breaker, creating it if needed.
func (r *Registry) Execute(ctx context.Context, name string, fn func(context.Context) (any, error)) (any, error) {
	b := r.GetOrCreate(name)
	result, err := b.Execute(ctx, fn)
	if err != nil {
		if _, open := err.(*OpenError); open {
			r.logger.Warn("circuit breaker rejected call", "breaker", name)
		}
	}
	return result, err
}

// States returns a snapshot of every registered breaker.
func (r *Registry) States() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		snaps = append(snaps, b.State())
	}
	return snaps
}

// Get returns the named breaker if it has been created.
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.breakers[name]
	return b, ok
}

// ResetAll forces every registered breaker back to CLOSED.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
