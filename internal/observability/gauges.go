package observability

import (
	"context"
	"fmt"

	"github.com/dizid/site-improver/internal/breaker"
	"github.com/dizid/site-improver/internal/progress"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// RegisterPlatformMetrics registers the async gauges that are scraped from
// the bus and breaker registry. Call once at startup, after InitMetrics.
func RegisterPlatformMetrics(bus *progress.Bus, breakers *breaker.Registry) error {
	meter := otel.Meter("site-improver")

	_, err := meter.Int64ObservableGauge("siteimprover.jobs.active",
		metric.WithDescription("Jobs currently tracked by the progress bus"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(bus.JobCount()))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register active jobs gauge: %w", err)
	}

	_, err = meter.Int64ObservableGauge("siteimprover.jobs.subscribers",
		metric.WithDescription("Open progress event subscriptions"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(bus.SubscriberCount()))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register subscriber gauge: %w", err)
	}

	_, err = meter.Int64ObservableGauge("siteimprover.breakers.open",
		metric.WithDescription("Circuit breakers currently in the OPEN state"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			var open int64
			for _, s := range breakers.States() {
				if s.State == breaker.StateOpen {
					open++
				}
			}
			obs.Observe(open)
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register breaker gauge: %w", err)
	}

	return nil
}
