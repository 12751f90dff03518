package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/internal/app/ports"
	"github.com/fr0stylo/adsync/internal/db"
)

// BrandStore is the sqlite-backed brand registry and watermark store.
type BrandStore struct {
	db *db.Database
}

func NewBrandStore(database *db.Database) *BrandStore {
	return &BrandStore{db: database}
}

func (s *BrandStore) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	rows, err := s.db.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	out := make([]domain.Brand, 0, len(rows))
	for _, row := range rows {
		out = append(out, toBrand(row))
	}
	return out, nil
}

func (s *BrandStore) GetBrand(ctx context.Context, brandID string) (domain.Brand, error) {
	row, err := s.db.GetBrand(ctx, strings.TrimSpace(brandID))
	if err != nil {
		return domain.Brand{}, mapNotFound(err)
	}
	return toBrand(row), nil
}

func (s *BrandStore) FindBrandByPageID(ctx context.Context, pageID string) (domain.Brand, error) {
	row, err := s.db.GetBrandByPageID(ctx, strings.TrimSpace(pageID))
	if err != nil {
		return domain.Brand{}, mapNotFound(err)
	}
	return toBrand(row), nil
}

func (s *BrandStore) SetWatermark(ctx context.Context, brandID string, fetchedAt time.Time) error {
	return mapNotFound(s.db.SetBrandWatermark(ctx, brandID, &fetchedAt))
}

func (s *BrandStore) MarkRateLimited(ctx context.Context, brandID string, until time.Time) error {
	return mapNotFound(s.db.SetBrandRateLimitedUntil(ctx, brandID, &until))
}

// UpsertBrand registers a brand or updates its page id and name.
func (s *BrandStore) UpsertBrand(ctx context.Context, brand domain.Brand) error {
	id := strings.TrimSpace(brand.ID)
	if id == "" {
		return errors.New("brand id is required")
	}
	return s.db.UpsertBrand(ctx, id, strings.TrimSpace(brand.PageID), strings.TrimSpace(brand.Name))
}

// ResetWatermark clears the watermark and any cooldown so the next run uses the default lookback.
func (s *BrandStore) ResetWatermark(ctx context.Context, brandID string) error {
	if err := s.db.SetBrandWatermark(ctx, brandID, nil); err != nil {
		return mapNotFound(err)
	}
	return mapNotFound(s.db.SetBrandRateLimitedUntil(ctx, brandID, nil))
}

func toBrand(row db.BrandRow) domain.Brand {
	return domain.Brand{
		ID:               row.ID,
		PageID:           row.PageID,
		Name:             row.Name,
		LastFetchedAt:    row.LastFetchedAt,
		RateLimitedUntil: row.RateLimitedUntil,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrBrandNotFound
	}
	return err
}

var _ ports.BrandAdmin = (*BrandStore)(nil)
