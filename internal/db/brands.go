package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const timeLayout = time.RFC3339Nano

// BrandRow is one row of the brands table.
type BrandRow struct {
	ID               string
	PageID           string
	Name             string
	LastFetchedAt    *time.Time
	RateLimitedUntil *time.Time
	UpdatedAt        string
}

const listBrands = `-- name: ListBrands :many
SELECT id, page_id, name, last_fetched_at, rate_limited_until, updated_at
FROM brands
ORDER BY id`

const getBrand = `-- name: GetBrand :one
SELECT id, page_id, name, last_fetched_at, rate_limited_until, updated_at
FROM brands
WHERE id = ?`

const getBrandByPageID = `-- name: GetBrandByPageID :one
SELECT id, page_id, name, last_fetched_at, rate_limited_until, updated_at
FROM brands
WHERE page_id = ?
ORDER BY id
LIMIT 1`

const upsertBrand = `-- name: UpsertBrand :exec
INSERT INTO brands (id, page_id, name, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    page_id = excluded.page_id,
    name = excluded.name,
    updated_at = excluded.updated_at`

const setBrandWatermark = `-- name: SetBrandWatermark :execrows
UPDATE brands
SET last_fetched_at = ?, updated_at = ?
WHERE id = ?`

const setBrandRateLimitedUntil = `-- name: SetBrandRateLimitedUntil :execrows
UPDATE brands
SET rate_limited_until = ?, updated_at = ?
WHERE id = ?`

// ListBrands returns every registered brand ordered by id.
func (c *Database) ListBrands(ctx context.Context) ([]BrandRow, error) {
	rows, err := c.q.QueryContext(ctx, listBrands)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BrandRow
	for rows.Next() {
		row, err := scanBrand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetBrand returns sql.ErrNoRows for unknown ids.
func (c *Database) GetBrand(ctx context.Context, id string) (BrandRow, error) {
	return scanBrand(c.q.QueryRowContext(ctx, getBrand, id))
}

// GetBrandByPageID returns the first brand bound to pageID.
func (c *Database) GetBrandByPageID(ctx context.Context, pageID string) (BrandRow, error) {
	return scanBrand(c.q.QueryRowContext(ctx, getBrandByPageID, pageID))
}

// UpsertBrand inserts a brand or updates its page and name. Watermarks are kept.
func (c *Database) UpsertBrand(ctx context.Context, id, pageID, name string) error {
	_, err := c.q.ExecContext(ctx, upsertBrand, id, pageID, name, formatTime(time.Now()))
	return err
}

// SetBrandWatermark sets or clears (nil) last_fetched_at. It returns sql.ErrNoRows for unknown ids.
func (c *Database) SetBrandWatermark(ctx context.Context, id string, at *time.Time) error {
	return c.execOne(ctx, setBrandWatermark, nullableTime(at), formatTime(time.Now()), id)
}

// SetBrandRateLimitedUntil sets or clears (nil) the cooldown deadline.
func (c *Database) SetBrandRateLimitedUntil(ctx context.Context, id string, until *time.Time) error {
	return c.execOne(ctx, setBrandRateLimitedUntil, nullableTime(until), formatTime(time.Now()), id)
}

func (c *Database) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBrand(row rowScanner) (BrandRow, error) {
	var (
		out                      BrandRow
		lastFetched, rateLimited sql.NullString
	)
	if err := row.Scan(&out.ID, &out.PageID, &out.Name, &lastFetched, &rateLimited, &out.UpdatedAt); err != nil {
		return BrandRow{}, err
	}
	var err error
	if out.LastFetchedAt, err = parseNullTime(lastFetched); err != nil {
		return BrandRow{}, fmt.Errorf("brand %s last_fetched_at: %w", out.ID, err)
	}
	if out.RateLimitedUntil, err = parseNullTime(rateLimited); err != nil {
		return BrandRow{}, fmt.Errorf("brand %s rate_limited_until: %w", out.ID, err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
