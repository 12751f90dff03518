package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/internal/app/ports"
	"github.com/fr0stylo/adsync/internal/observability"
)

// DefaultMaxPages bounds pagination when FetchConfig.MaxPages is unset.
const DefaultMaxPages = 20

// FetchConfig tunes pagination and page-level retries.
type FetchConfig struct {
	MaxPages         int
	MaxRetries       int
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	RateLimitBackoff time.Duration
	CallTimeout      time.Duration
}

func (c FetchConfig) normalized() FetchConfig {
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 2 * time.Minute
	}
	if c.RateLimitBackoff < 0 {
		c.RateLimitBackoff = 0
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	return c
}

// FetchResult is the outcome of paginating one brand.
type FetchResult struct {
	Ads   []domain.Ad
	Pages int
	// Truncated is set when the page bound stopped pagination before the cutoff.
	Truncated  bool
	Discarded  int
	Duplicates int
	OutOfOrder int
}

// All yields the fetched ads in fetch order (newest first).
func (r FetchResult) All() iter.Seq[domain.Ad] {
	return slices.Values(r.Ads)
}

// Fetcher walks the ads API for one page id until the cutoff is crossed.
// It relies on the API listing ads newest first and counts violations.
type Fetcher struct {
	api ports.AdsAPI
	cfg FetchConfig
	log *slog.Logger
}

func NewFetcher(api ports.AdsAPI, cfg FetchConfig, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{api: api, cfg: cfg.normalized(), log: log}
}

// FetchNewAds returns ads of brand created at or after cutoff. Every call starts
// from the first page. On error no ads are returned.
func (f *Fetcher) FetchNewAds(ctx context.Context, brand domain.Brand, cutoff time.Time) (FetchResult, error) {
	ctx, span := observability.StartSpan(ctx, "adsync.fetch",
		attribute.String("adsync.page_id", brand.PageID),
		attribute.String("adsync.cutoff", cutoff.UTC().Format(time.RFC3339)),
	)
	defer span.End()

	var (
		result   FetchResult
		token    string
		previous time.Time
		seen     = make(map[string]struct{})
	)
	for page := 1; ; page++ {
		if page > f.cfg.MaxPages {
			result.Truncated = true
			f.log.WarnContext(ctx, "page limit reached before cutoff",
				"page_id", brand.PageID, "max_pages", f.cfg.MaxPages, "ads", len(result.Ads))
			break
		}

		resp, err := f.fetchPage(ctx, domain.PageRequest{PageID: brand.PageID, Since: cutoff, PageToken: token}, page)
		if err != nil {
			span.RecordError(err)
			return FetchResult{}, fmt.Errorf("fetch page %d of %s: %w", page, brand.PageID, err)
		}
		result.Pages++

		crossed := false
		for _, ad := range resp.Ads {
			if !previous.IsZero() && ad.CreatedTime.After(previous) {
				result.OutOfOrder++
			}
			previous = ad.CreatedTime

			if ad.CreatedTime.Before(cutoff) {
				crossed = true
				result.Discarded++
				continue
			}
			if ad.ID != "" {
				if _, dup := seen[ad.ID]; dup {
					result.Duplicates++
					continue
				}
				seen[ad.ID] = struct{}{}
			}
			ad.BrandID = brand.ID
			if ad.PageID == "" {
				ad.PageID = brand.PageID
			}
			result.Ads = append(result.Ads, ad)
		}

		if crossed || resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}

	if result.OutOfOrder > 0 {
		f.log.WarnContext(ctx, "ads api returned ads out of recency order",
			"page_id", brand.PageID, "out_of_order", result.OutOfOrder)
	}
	span.SetAttributes(
		attribute.Int("adsync.pages", result.Pages),
		attribute.Int("adsync.ads", len(result.Ads)),
		attribute.Bool("adsync.truncated", result.Truncated),
	)
	return result, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, req domain.PageRequest, page int) (domain.Page, error) {
	var (
		out     domain.Page
		attempt int
		floor   time.Duration
	)
	backoff := withFloor(newBackoff(f.cfg.BackoffBase, f.cfg.BackoffMax, f.cfg.MaxRetries), &floor)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, f.cfg.CallTimeout)
		defer cancel()

		resp, err := f.api.FetchPage(callCtx, req)
		if err == nil {
			out = resp
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var rateLimit *domain.RateLimitError
		if errors.As(err, &rateLimit) {
			floor = max(rateLimit.RetryAfter, f.cfg.RateLimitBackoff)
		}
		f.log.WarnContext(ctx, "page fetch failed",
			"page_id", req.PageID, "page", page, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	return out, err
}
