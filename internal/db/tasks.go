package db

import (
	"context"
	"time"
)

// Task statuses in the local queue.
const (
	TaskPending = "pending"
	TaskDone    = "done"
)

// TaskRow is one row of the local task queue.
type TaskRow struct {
	DedupeKey  string
	BrandID    string
	AdID       string
	PageID     string
	Payload    string
	Status     string
	EnqueuedAt time.Time
}

const insertTask = `-- name: InsertTask :execrows
INSERT INTO tasks (dedupe_key, brand_id, ad_id, page_id, payload, status, enqueued_at)
VALUES (?, ?, ?, ?, ?, 'pending', ?)
ON CONFLICT(dedupe_key) DO NOTHING`

const listTasksByStatus = `-- name: ListTasksByStatus :many
SELECT dedupe_key, brand_id, ad_id, page_id, payload, status, enqueued_at
FROM tasks
WHERE status = ?
ORDER BY enqueued_at, dedupe_key
LIMIT ?`

const setTaskStatus = `-- name: SetTaskStatus :execrows
UPDATE tasks SET status = ? WHERE dedupe_key = ?`

const countTasks = `-- name: CountTasks :one
SELECT COUNT(*) FROM tasks`

// InsertTask stores a task unless its dedupe key exists. It reports whether a row was inserted.
func (c *Database) InsertTask(ctx context.Context, row TaskRow) (bool, error) {
	enqueuedAt := row.EnqueuedAt
	if enqueuedAt.IsZero() {
		enqueuedAt = time.Now()
	}
	result, err := c.q.ExecContext(ctx, insertTask, row.DedupeKey, row.BrandID, row.AdID, row.PageID, row.Payload, formatTime(enqueuedAt))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ListTasksByStatus returns up to limit tasks in enqueue order.
func (c *Database) ListTasksByStatus(ctx context.Context, status string, limit int) ([]TaskRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.q.QueryContext(ctx, listTasksByStatus, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var (
			row        TaskRow
			enqueuedAt string
		)
		if err := rows.Scan(&row.DedupeKey, &row.BrandID, &row.AdID, &row.PageID, &row.Payload, &row.Status, &enqueuedAt); err != nil {
			return nil, err
		}
		if row.EnqueuedAt, err = time.Parse(timeLayout, enqueuedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SetTaskStatus updates a task status. It returns sql.ErrNoRows for unknown keys.
func (c *Database) SetTaskStatus(ctx context.Context, dedupeKey, status string) error {
	return c.execOne(ctx, setTaskStatus, status, dedupeKey)
}

// CountTasks returns the number of stored tasks in any status.
func (c *Database) CountTasks(ctx context.Context) (int64, error) {
	var n int64
	err := c.q.QueryRowContext(ctx, countTasks).Scan(&n)
	return n, err
}
