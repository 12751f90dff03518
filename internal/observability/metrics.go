package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const syncMeterName = "adsync/sync"

// SyncMetrics records sync outcomes on the global meter provider.
// A nil *SyncMetrics records nothing.
type SyncMetrics struct {
	brands   metric.Int64Counter
	ads      metric.Int64Counter
	tasks    metric.Int64Counter
	duration metric.Float64Histogram
}

func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(syncMeterName)

	brands, err := meter.Int64Counter("adsync.brands",
		metric.WithDescription("Brands handled by sync runs, by status"))
	if err != nil {
		return nil, fmt.Errorf("create brands counter: %w", err)
	}
	ads, err := meter.Int64Counter("adsync.ads.fetched",
		metric.WithDescription("Ads newer than the brand cutoff"))
	if err != nil {
		return nil, fmt.Errorf("create ads counter: %w", err)
	}
	tasks, err := meter.Int64Counter("adsync.tasks",
		metric.WithDescription("Dispatch outcomes, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create tasks counter: %w", err)
	}
	duration, err := meter.Float64Histogram("adsync.run.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall time of a sync run"))
	if err != nil {
		return nil, fmt.Errorf("create run duration histogram: %w", err)
	}

	return &SyncMetrics{brands: brands, ads: ads, tasks: tasks, duration: duration}, nil
}

// RecordBrand records the outcome of one brand sync.
func (m *SyncMetrics) RecordBrand(ctx context.Context, status string, adsFetched, created, skipped, failed int) {
	if m == nil {
		return
	}
	m.brands.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.ads.Add(ctx, int64(adsFetched))
	m.addTasks(ctx, "created", created)
	m.addTasks(ctx, "skipped", skipped)
	m.addTasks(ctx, "failed", failed)
}

// RecordRun records the duration of a whole run.
func (m *SyncMetrics) RecordRun(ctx context.Context, mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("mode", mode)))
}

func (m *SyncMetrics) addTasks(ctx context.Context, outcome string, n int) {
	if n <= 0 {
		return
	}
	m.tasks.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
}
