// Package handlers contains HTTP handlers for the site-improver API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dizid/site-improver/internal/billing"
	"github.com/dizid/site-improver/internal/breaker"
	"github.com/dizid/site-improver/internal/pipeline"
	"github.com/dizid/site-improver/internal/progress"
	"github.com/dizid/site-improver/internal/store"
	"github.com/dizid/site-improver/pkg/api"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Backend combines the store interfaces the handlers need.
type Backend interface {
	Ping(ctx context.Context) error
	store.TenantStore
	store.Store
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store     Backend
	bus       *progress.Bus
	pool      *pipeline.Pool
	usage     *billing.Enforcer
	breakers  *breaker.Registry
	logger    *slog.Logger
	heartbeat time.Duration

	quotaDenials metric.Int64Counter
}

// Deps carries the collaborators a Handlers instance needs.
type Deps struct {
	Store             Backend
	Bus               *progress.Bus
	Pool              *pipeline.Pool
	Usage             *billing.Enforcer
	Breakers          *breaker.Registry
	Logger            *slog.Logger
	HeartbeatInterval time.Duration
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	if d.HeartbeatInterval <= 0 {
		d.HeartbeatInterval = 25 * time.Second
	}
	quotaDenials, err := otel.Meter("site-improver").Int64Counter("siteimprover.quota.denials",
		metric.WithDescription("Requests rejected for quota or spending cap"),
	)
	if err != nil {
		// Serving requests matters more than the counter; fall back to a
		// no-op instrument rather than leave a nil in the hot path.
		d.Logger.Warn("failed to register quota denial counter", "error", err)
		quotaDenials = noop.Int64Counter{}
	}
	return &Handlers{
		store:     d.Store,
		bus:       d.Bus,
		pool:      d.Pool,
		usage:     d.Usage,
		breakers:  d.Breakers,
		logger:    d.Logger,
		heartbeat: d.HeartbeatInterval,

		quotaDenials: quotaDenials,
	}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message, code string, status int) {
	h.respondJson(w, status, api.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// domainError maps domain errors to their HTTP shape. Internal details and
// stack traces never reach the response body.
func (h *Handlers) domainError(w http.ResponseWriter, err error) {
	var quotaErr *billing.QuotaExceededError
	var capErr *billing.SpendingCapError
	var openErr *breaker.OpenError

	switch {
	case errors.As(err, &quotaErr):
		h.quotaDenials.Add(context.Background(), 1)
		h.httpError(w, quotaErr.Error(), api.CodeQuotaExceeded, http.StatusPaymentRequired)
	case errors.As(err, &capErr):
		h.quotaDenials.Add(context.Background(), 1)
		h.httpError(w, capErr.Error(), api.CodeSpendingCapExceeded, http.StatusPaymentRequired)
	case errors.As(err, &openErr):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(openErr.RetryAfter.Seconds())))
		h.httpError(w, openErr.Error(), api.CodeCircuitOpen, http.StatusServiceUnavailable)
	case errors.Is(err, store.ErrNotFound):
		h.httpError(w, "Not found", api.CodeNotFound, http.StatusNotFound)
	default:
		h.logger.Error("request failed", "error", err)
		h.httpError(w, "Internal server error", "", http.StatusInternalServerError)
	}
}

// scoped returns the tenant-scoped view of the record store for a request.
func (h *Handlers) scoped(ctx context.Context) *store.Scoped {
	return store.ForContext(ctx, h.store)
}
