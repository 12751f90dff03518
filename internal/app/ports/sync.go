package ports

import (
	"context"
	"time"

	"github.com/fr0stylo/adsync/internal/app/domain"
)

// BrandStore is the brand registry and watermark contract used by the sync engine.
type BrandStore interface {
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	// GetBrand returns domain.ErrBrandNotFound for unknown ids.
	GetBrand(ctx context.Context, brandID string) (domain.Brand, error)
	FindBrandByPageID(ctx context.Context, pageID string) (domain.Brand, error)
	SetWatermark(ctx context.Context, brandID string, fetchedAt time.Time) error
	MarkRateLimited(ctx context.Context, brandID string, until time.Time) error
}

// BrandAdmin extends BrandStore with operator maintenance calls.
type BrandAdmin interface {
	BrandStore
	UpsertBrand(ctx context.Context, brand domain.Brand) error
	ResetWatermark(ctx context.Context, brandID string) error
}

// AdsAPI fetches one page of ads per call.
type AdsAPI interface {
	FetchPage(ctx context.Context, req domain.PageRequest) (domain.Page, error)
}

// TaskQueue is an enqueue-only sink that enforces idempotency by dedupe key.
// A duplicate key is reported as domain.EnqueueDuplicate with a nil error.
type TaskQueue interface {
	Enqueue(ctx context.Context, task domain.Task) (domain.EnqueueResult, error)
}
