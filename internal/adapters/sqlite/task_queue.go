package sqlite

import (
	"context"
	"fmt"

	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/internal/app/ports"
	"github.com/fr0stylo/adsync/internal/db"
)

// TaskQueue stores work items in the local tasks table. The dedupe key is the
// primary key, so a repeated key is absorbed and reported as a duplicate.
type TaskQueue struct {
	db *db.Database
}

func NewTaskQueue(database *db.Database) *TaskQueue {
	return &TaskQueue{db: database}
}

func (q *TaskQueue) Enqueue(ctx context.Context, task domain.Task) (domain.EnqueueResult, error) {
	if task.DedupeKey == "" {
		return 0, fmt.Errorf("%w: missing dedupe key", domain.ErrInvalidTask)
	}
	inserted, err := q.db.InsertTask(ctx, db.TaskRow{
		DedupeKey: task.DedupeKey,
		BrandID:   task.BrandID,
		AdID:      task.AdID,
		PageID:    task.PageID,
		Payload:   string(task.Body),
	})
	if err != nil {
		return 0, fmt.Errorf("insert task %s: %w", task.DedupeKey, err)
	}
	if !inserted {
		return domain.EnqueueDuplicate, nil
	}
	return domain.EnqueueCreated, nil
}

// Pending lists up to limit tasks not yet picked up by a worker.
func (q *TaskQueue) Pending(ctx context.Context, limit int) ([]domain.Task, error) {
	rows, err := q.db.ListTasksByStatus(ctx, db.TaskPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	out := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Task{
			DispatchRecord: domain.DispatchRecord{DedupeKey: row.DedupeKey, BrandID: row.BrandID, AdID: row.AdID},
			PageID:         row.PageID,
			Body:           []byte(row.Payload),
		})
	}
	return out, nil
}

// Ack marks a task as handled.
func (q *TaskQueue) Ack(ctx context.Context, dedupeKey string) error {
	return q.db.SetTaskStatus(ctx, dedupeKey, db.TaskDone)
}

var _ ports.TaskQueue = (*TaskQueue)(nil)
