package httpqueue

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/internal/observability"
	"github.com/fr0stylo/adsync/pkg/taskpublisher"
)

type publisher interface {
	Publish(ctx context.Context, task taskpublisher.Task) error
}

// Queue pushes tasks to an HTTP worker as signed CloudEvents.
type Queue struct {
	pub publisher
}

func New(client taskpublisher.Client) *Queue {
	return &Queue{pub: client}
}

func (q *Queue) Enqueue(ctx context.Context, task domain.Task) (domain.EnqueueResult, error) {
	ctx, span := observability.StartClientSpan(ctx, "queue.enqueue",
		attribute.String("adsync.queue", "http"),
		attribute.String("adsync.dedupe_key", task.DedupeKey),
	)
	defer span.End()

	err := q.pub.Publish(ctx, taskpublisher.Task{
		ID:        task.DedupeKey,
		BrandID:   task.BrandID,
		AdID:      task.AdID,
		PageID:    task.PageID,
		CreatedAt: task.CreatedTime,
		Data:      task.Body,
	})
	if errors.Is(err, taskpublisher.ErrDuplicate) {
		return domain.EnqueueDuplicate, nil
	}
	var status *taskpublisher.StatusError
	if errors.As(err, &status) && status.Status == http.StatusBadRequest {
		span.RecordError(err)
		return 0, errors.Join(domain.ErrInvalidTask, err)
	}
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return domain.EnqueueCreated, nil
}
