package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/internal/app/ports"
	"github.com/fr0stylo/adsync/internal/observability"
)

// DispatchConfig tunes per-ad enqueue retries.
type DispatchConfig struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	CallTimeout time.Duration
}

func (c DispatchConfig) normalized() DispatchConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 10 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	return c
}

// DispatchResult counts enqueue outcomes for one batch.
type DispatchResult struct {
	Created int
	// Skipped includes queue duplicates and ads that cannot become tasks.
	Skipped  int
	Invalid  int
	Failed   int
	Failures []domain.AdFailure
}

// Err returns a *domain.DispatchError when any ad failed to reach the queue.
func (r DispatchResult) Err(brandID string) error {
	if r.Failed == 0 {
		return nil
	}
	return &domain.DispatchError{BrandID: brandID, Failures: r.Failures}
}

// Dispatcher turns ads into tasks and hands them to the queue. It keeps no
// dedupe state of its own; the queue absorbs repeated keys.
type Dispatcher struct {
	queue ports.TaskQueue
	cfg   DispatchConfig
	log   *slog.Logger
}

func NewDispatcher(queue ports.TaskQueue, cfg DispatchConfig, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{queue: queue, cfg: cfg.normalized(), log: log}
}

// Dispatch enqueues ads in order. A failing ad does not stop the ones after it.
func (d *Dispatcher) Dispatch(ctx context.Context, brand domain.Brand, ads iter.Seq[domain.Ad]) DispatchResult {
	ctx, span := observability.StartSpan(ctx, "adsync.dispatch")
	defer span.End()

	var res DispatchResult
	for ad := range ads {
		task, err := domain.NewTask(brand, ad)
		if err != nil {
			res.Skipped++
			res.Invalid++
			d.log.WarnContext(ctx, "ad not dispatchable", "ad_id", ad.ID, "error", err)
			continue
		}

		outcome, err := d.enqueue(ctx, task)
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, domain.AdFailure{AdID: task.AdID, DedupeKey: task.DedupeKey, Err: err})
			d.log.ErrorContext(ctx, "enqueue failed", "ad_id", task.AdID, "dedupe_key", task.DedupeKey, "error", err)
			continue
		}
		switch outcome {
		case domain.EnqueueDuplicate:
			res.Skipped++
			d.log.DebugContext(ctx, "task already queued", "ad_id", task.AdID, "dedupe_key", task.DedupeKey)
		default:
			res.Created++
		}
	}

	span.SetAttributes(
		attribute.Int("adsync.tasks_created", res.Created),
		attribute.Int("adsync.tasks_skipped", res.Skipped),
		attribute.Int("adsync.tasks_failed", res.Failed),
	)
	if err := res.Err(brand.ID); err != nil {
		span.RecordError(err)
	}
	return res
}

func (d *Dispatcher) enqueue(ctx context.Context, task domain.Task) (domain.EnqueueResult, error) {
	var (
		outcome domain.EnqueueResult
		attempt int
	)
	err := retry.Do(ctx, newBackoff(d.cfg.BackoffBase, d.cfg.BackoffMax, d.cfg.MaxRetries), func(ctx context.Context) error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
		defer cancel()

		result, err := d.queue.Enqueue(callCtx, task)
		if err == nil {
			outcome = result
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, domain.ErrInvalidTask) {
			return err
		}
		d.log.WarnContext(ctx, "enqueue attempt failed", "ad_id", task.AdID, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue %s after %d attempts: %w", task.DedupeKey, attempt, err)
	}
	return outcome, nil
}
