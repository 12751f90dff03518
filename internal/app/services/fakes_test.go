package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/fr0stylo/adsync/internal/app/domain"
)

var errTransient = errors.New("connection reset")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePage is one scripted page. Queued errs are returned before the ads.
type fakePage struct {
	ads  []domain.Ad
	errs []error
	// fail makes every call to this page return the error.
	fail error
}

// fakeAdsAPI serves scripted pages per page id. Tokens are 1-based page numbers.
type fakeAdsAPI struct {
	mu    sync.Mutex
	pages map[string][]*fakePage
	calls []domain.PageRequest
}

func newFakeAdsAPI() *fakeAdsAPI {
	return &fakeAdsAPI{pages: make(map[string][]*fakePage)}
}

func (f *fakeAdsAPI) add(pageID string, pages ...*fakePage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[pageID] = append(f.pages[pageID], pages...)
}

func (f *fakeAdsAPI) FetchPage(_ context.Context, req domain.PageRequest) (domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)

	idx := 0
	if req.PageToken != "" {
		n, err := strconv.Atoi(req.PageToken)
		if err != nil {
			return domain.Page{}, &domain.APIError{Status: 400, Body: "bad cursor"}
		}
		idx = n - 1
	}
	pages := f.pages[req.PageID]
	if idx >= len(pages) {
		return domain.Page{}, nil
	}
	page := pages[idx]
	if page.fail != nil {
		return domain.Page{}, page.fail
	}
	if len(page.errs) > 0 {
		err := page.errs[0]
		page.errs = page.errs[1:]
		return domain.Page{}, err
	}

	out := domain.Page{Ads: append([]domain.Ad(nil), page.ads...)}
	if idx+1 < len(pages) {
		out.NextPageToken = strconv.Itoa(idx + 2)
	}
	return out, nil
}

func (f *fakeAdsAPI) callCount(pageID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.PageID == pageID {
			n++
		}
	}
	return n
}

// memoryQueue dedupes by key like a real queue. Failures are keyed by ad id.
type memoryQueue struct {
	mu        sync.Mutex
	keys      map[string]struct{}
	calls     map[string]int
	fail      map[string]error
	failTimes map[string]int
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{
		keys:      make(map[string]struct{}),
		calls:     make(map[string]int),
		fail:      make(map[string]error),
		failTimes: make(map[string]int),
	}
}

func (q *memoryQueue) Enqueue(_ context.Context, task domain.Task) (domain.EnqueueResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls[task.AdID]++

	if n := q.failTimes[task.AdID]; n > 0 {
		q.failTimes[task.AdID] = n - 1
		return 0, errTransient
	}
	if err := q.fail[task.AdID]; err != nil {
		return 0, err
	}
	if _, ok := q.keys[task.DedupeKey]; ok {
		return domain.EnqueueDuplicate, nil
	}
	q.keys[task.DedupeKey] = struct{}{}
	return domain.EnqueueCreated, nil
}

func (q *memoryQueue) totalCalls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, c := range q.calls {
		n += c
	}
	return n
}

func (q *memoryQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.keys)
}

// memoryStore is an in-memory brand registry.
type memoryStore struct {
	mu       sync.Mutex
	order    []string
	brands   map[string]domain.Brand
	listErr  error
	setErr   map[string]error
	setCalls int
}

func newMemoryStore(brands ...domain.Brand) *memoryStore {
	s := &memoryStore{brands: make(map[string]domain.Brand), setErr: make(map[string]error)}
	for _, b := range brands {
		s.order = append(s.order, b.ID)
		s.brands[b.ID] = b
	}
	return s
}

func (s *memoryStore) ListBrands(context.Context) ([]domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Brand, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.brands[id])
	}
	return out, nil
}

func (s *memoryStore) GetBrand(_ context.Context, brandID string) (domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.brands[brandID]
	if !ok {
		return domain.Brand{}, domain.ErrBrandNotFound
	}
	return b, nil
}

func (s *memoryStore) FindBrandByPageID(_ context.Context, pageID string) (domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.brands[id].PageID == pageID {
			return s.brands[id], nil
		}
	}
	return domain.Brand{}, domain.ErrBrandNotFound
}

func (s *memoryStore) SetWatermark(_ context.Context, brandID string, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if err := s.setErr[brandID]; err != nil {
		return err
	}
	b, ok := s.brands[brandID]
	if !ok {
		return domain.ErrBrandNotFound
	}
	b.LastFetchedAt = &fetchedAt
	s.brands[brandID] = b
	return nil
}

func (s *memoryStore) MarkRateLimited(_ context.Context, brandID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.brands[brandID]
	if !ok {
		return domain.ErrBrandNotFound
	}
	b.RateLimitedUntil = &until
	s.brands[brandID] = b
	return nil
}

func (s *memoryStore) watermark(brandID string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brands[brandID].LastFetchedAt
}

func (s *memoryStore) brand(brandID string) domain.Brand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brands[brandID]
}

func videoAd(id string, created time.Time) domain.Ad {
	return domain.Ad{
		ID:          id,
		CreatedTime: created,
		VideoURL:    fmt.Sprintf("https://cdn.example/%s.mp4", id),
	}
}

func fastFetchConfig() FetchConfig {
	return FetchConfig{
		MaxPages:    20,
		MaxRetries:  2,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		CallTimeout: time.Second,
	}
}

func fastDispatchConfig() DispatchConfig {
	return DispatchConfig{
		MaxRetries:  2,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		CallTimeout: time.Second,
	}
}
