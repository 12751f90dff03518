package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fr0stylo/adsync/internal/app/domain"
	portmocks "github.com/fr0stylo/adsync/internal/app/ports/mocks"
)

var t0 = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestFetcherStopsAtFirstAdOlderThanCutoff(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444",
		&fakePage{ads: []domain.Ad{videoAd("a1", t0.Add(5*time.Minute)), videoAd("a2", t0.Add(3*time.Minute))}},
		&fakePage{ads: []domain.Ad{videoAd("a3", t0.Add(-time.Minute))}},
		&fakePage{ads: []domain.Ad{videoAd("a4", t0.Add(-2*time.Minute))}},
	)
	fetcher := NewFetcher(api, fastFetchConfig(), discardLogger())

	result, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(result.Ads) != 2 || result.Ads[0].ID != "a1" || result.Ads[1].ID != "a2" {
		t.Fatalf("unexpected ads: %+v", result.Ads)
	}
	if result.Pages != 2 || api.callCount("444") != 2 {
		t.Fatalf("expected pagination to stop after page 2: pages=%d calls=%d", result.Pages, api.callCount("444"))
	}
	if result.Discarded != 1 {
		t.Fatalf("expected 1 discarded ad, got %d", result.Discarded)
	}
	for _, ad := range result.Ads {
		if ad.BrandID != "b1" || ad.PageID != "444" {
			t.Fatalf("expected brand and page on ad, got %+v", ad)
		}
	}
}

func TestFetcherIncludesAdsExactlyAtCutoff(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444", &fakePage{ads: []domain.Ad{videoAd("a1", t0), videoAd("a2", t0.Add(-time.Nanosecond))}})
	fetcher := NewFetcher(api, fastFetchConfig(), discardLogger())

	result, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(result.Ads) != 1 || result.Ads[0].ID != "a1" {
		t.Fatalf("unexpected ads: %+v", result.Ads)
	}
}

func TestFetcherFollowsTokensUntilExhausted(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444",
		&fakePage{ads: []domain.Ad{videoAd("a1", t0.Add(3*time.Hour)), videoAd("a2", t0.Add(2*time.Hour))}},
		&fakePage{ads: []domain.Ad{videoAd("a3", t0.Add(time.Hour))}},
	)
	fetcher := NewFetcher(api, fastFetchConfig(), discardLogger())

	result, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(result.Ads) != 3 || result.Truncated {
		t.Fatalf("unexpected result: ads=%d truncated=%v", len(result.Ads), result.Truncated)
	}
}

func TestFetcherPageLimitTruncates(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444",
		&fakePage{ads: []domain.Ad{videoAd("a1", t0.Add(3*time.Hour))}},
		&fakePage{ads: []domain.Ad{videoAd("a2", t0.Add(2*time.Hour))}},
		&fakePage{ads: []domain.Ad{videoAd("a3", t0.Add(time.Hour))}},
	)
	cfg := fastFetchConfig()
	cfg.MaxPages = 2
	fetcher := NewFetcher(api, cfg, discardLogger())

	result, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !result.Truncated || result.Pages != 2 || len(result.Ads) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if api.callCount("444") != 2 {
		t.Fatalf("expected 2 api calls, got %d", api.callCount("444"))
	}
}

func TestFetcherRetriesTransientPageFailure(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444", &fakePage{
		ads:  []domain.Ad{videoAd("a1", t0.Add(time.Hour))},
		errs: []error{&domain.APIError{Status: 502, Body: "bad gateway"}},
	})
	fetcher := NewFetcher(api, fastFetchConfig(), discardLogger())

	result, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(result.Ads) != 1 || api.callCount("444") != 2 {
		t.Fatalf("unexpected result: ads=%d calls=%d", len(result.Ads), api.callCount("444"))
	}
}

func TestFetcherDiscardsGatheredAdsWhenRetriesExhausted(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444",
		&fakePage{ads: []domain.Ad{videoAd("a1", t0.Add(3*time.Hour))}},
		&fakePage{fail: &domain.APIError{Status: 500, Body: "boom"}},
		&fakePage{ads: []domain.Ad{videoAd("a3", t0.Add(time.Hour))}},
	)
	fetcher := NewFetcher(api, fastFetchConfig(), discardLogger())

	result, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 500 {
		t.Fatalf("expected APIError 500, got %v", err)
	}
	if len(result.Ads) != 0 || result.Pages != 0 {
		t.Fatalf("expected no partial results, got %+v", result)
	}
	// one call for page 1, then 1 + 2 retries for page 2
	if api.callCount("444") != 4 {
		t.Fatalf("unexpected call count: %d", api.callCount("444"))
	}
}

func TestFetcherRateLimitUsesLongerBackoff(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444", &fakePage{
		ads:  []domain.Ad{videoAd("a1", t0.Add(time.Hour))},
		errs: []error{&domain.RateLimitError{Status: 429}},
	})
	cfg := fastFetchConfig()
	cfg.RateLimitBackoff = 60 * time.Millisecond
	fetcher := NewFetcher(api, cfg, discardLogger())

	start := time.Now()
	result, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("expected rate limit backoff of at least 60ms, waited %s", elapsed)
	}
	if len(result.Ads) != 1 {
		t.Fatalf("unexpected ads: %+v", result.Ads)
	}
}

func TestFetcherReturnsRateLimitErrorWhenExhausted(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444", &fakePage{fail: &domain.RateLimitError{Status: 429}})
	fetcher := NewFetcher(api, fastFetchConfig(), discardLogger())

	_, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	var rateLimit *domain.RateLimitError
	if !errors.As(err, &rateLimit) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
}

func TestFetcherDropsRepeatedAdsAndCountsOrderViolations(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444",
		&fakePage{ads: []domain.Ad{videoAd("a1", t0.Add(time.Hour)), videoAd("a2", t0.Add(3*time.Hour))}},
		&fakePage{ads: []domain.Ad{videoAd("a1", t0.Add(time.Hour))}},
	)
	fetcher := NewFetcher(api, fastFetchConfig(), discardLogger())

	result, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(result.Ads) != 2 || result.Duplicates != 1 {
		t.Fatalf("unexpected result: ads=%d duplicates=%d", len(result.Ads), result.Duplicates)
	}
	if result.OutOfOrder != 1 {
		t.Fatalf("expected 1 out-of-order ad, got %d", result.OutOfOrder)
	}
}

func TestFetcherPassesCutoffAndTokenToAPI(t *testing.T) {
	t.Parallel()

	api := portmocks.NewMockAdsAPI(t)
	api.EXPECT().FetchPage(mock.Anything, domain.PageRequest{PageID: "444", Since: t0}).
		Return(domain.Page{Ads: []domain.Ad{videoAd("a1", t0.Add(time.Hour))}, NextPageToken: "cursor-2"}, nil).Once()
	api.EXPECT().FetchPage(mock.Anything, domain.PageRequest{PageID: "444", Since: t0, PageToken: "cursor-2"}).
		Return(domain.Page{}, nil).Once()

	fetcher := NewFetcher(api, fastFetchConfig(), discardLogger())
	result, err := fetcher.FetchNewAds(context.Background(), domain.Brand{ID: "b1", PageID: "444"}, t0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(result.Ads) != 1 || result.Pages != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestFetcherStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	api := newFakeAdsAPI()
	api.add("444", &fakePage{ads: []domain.Ad{videoAd("a1", t0.Add(time.Hour))}})
	fetcher := NewFetcher(api, fastFetchConfig(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fetcher.FetchNewAds(ctx, domain.Brand{ID: "b1", PageID: "444"}, t0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if api.callCount("444") != 0 {
		t.Fatalf("expected no api calls, got %d", api.callCount("444"))
	}
}
