package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/internal/app/ports"
	"github.com/fr0stylo/adsync/internal/observability"
)

// SyncConfig holds orchestrator limits.
type SyncConfig struct {
	Lookback          time.Duration
	Concurrency       int
	RunTimeout        time.Duration
	RateLimitCooldown time.Duration
}

func (c SyncConfig) normalized() SyncConfig {
	if c.Lookback <= 0 {
		c.Lookback = domain.DefaultLookback
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.RateLimitCooldown < 0 {
		c.RateLimitCooldown = 0
	}
	return c
}

// RunOptions alters a single invocation.
type RunOptions struct {
	// DryRun fetches and reports without enqueuing or moving watermarks.
	DryRun bool
}

// BrandSelector picks the brand for RunOne. BrandID wins when both are set;
// a PageID alongside it overrides the registered page.
type BrandSelector struct {
	BrandID string
	PageID  string
}

// Syncer drives incremental sync for all registered brands.
type Syncer struct {
	store      ports.BrandStore
	fetcher    *Fetcher
	dispatcher *Dispatcher
	cfg        SyncConfig
	log        *slog.Logger
	metrics    *observability.SyncMetrics
	now        func() time.Time
	newRunID   func() string
}

type SyncerOption func(*Syncer)

// WithClock replaces time.Now for run start times.
func WithClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) { s.now = now }
}

func WithLogger(log *slog.Logger) SyncerOption {
	return func(s *Syncer) { s.log = log }
}

func WithMetrics(m *observability.SyncMetrics) SyncerOption {
	return func(s *Syncer) { s.metrics = m }
}

func NewSyncer(store ports.BrandStore, fetcher *Fetcher, dispatcher *Dispatcher, cfg SyncConfig, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		store:      store,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		cfg:        cfg.normalized(),
		log:        slog.Default(),
		now:        time.Now,
		newRunID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunAll syncs every registered brand with bounded parallelism. Per-brand
// failures are reported in the result; only a failure to list brands is returned.
func (s *Syncer) RunAll(ctx context.Context, opts RunOptions) (domain.RunResult, error) {
	run := s.newRun(opts)
	ctx, cancel := s.withRunTimeout(ctx)
	defer cancel()
	ctx = observability.WithRunID(ctx, run.RunID)
	ctx, span := observability.StartSpan(ctx, "adsync.run", attribute.String("adsync.mode", "all"))
	defer span.End()

	brands, err := s.store.ListBrands(ctx)
	if err != nil {
		err = &domain.WatermarkStoreError{Op: "list brands", Err: err}
		span.RecordError(err)
		return domain.RunResult{}, err
	}
	if len(brands) == 0 {
		s.log.InfoContext(ctx, "no brands registered")
		return run, nil
	}

	results := make([]domain.BrandResult, len(brands))
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for i, brand := range brands {
		g.Go(func() error {
			results[i] = s.syncBrand(ctx, brand, run.StartedAt, opts, true)
			return nil
		})
	}
	_ = g.Wait()

	for _, result := range results {
		run.Add(result)
	}
	s.finish(ctx, "all", run)
	return run, nil
}

// RunOne syncs a single brand chosen by id or page id, ignoring any cooldown.
// A page id with no registered brand is synced ad hoc from the default lookback
// and leaves the registry untouched.
func (s *Syncer) RunOne(ctx context.Context, sel BrandSelector, opts RunOptions) (domain.RunResult, error) {
	run := s.newRun(opts)
	ctx, cancel := s.withRunTimeout(ctx)
	defer cancel()
	ctx = observability.WithRunID(ctx, run.RunID)
	ctx, span := observability.StartSpan(ctx, "adsync.run", attribute.String("adsync.mode", "one"))
	defer span.End()

	brand, err := s.resolveBrand(ctx, sel)
	if err != nil {
		span.RecordError(err)
		return domain.RunResult{}, err
	}

	run.Add(s.syncBrand(ctx, brand, run.StartedAt, opts, false))
	s.finish(ctx, "one", run)
	return run, nil
}

func (s *Syncer) resolveBrand(ctx context.Context, sel BrandSelector) (domain.Brand, error) {
	brandID := strings.TrimSpace(sel.BrandID)
	pageID := strings.TrimSpace(sel.PageID)

	var (
		brand domain.Brand
		err   error
	)
	switch {
	case brandID != "":
		brand, err = s.store.GetBrand(ctx, brandID)
	case pageID != "":
		brand, err = s.store.FindBrandByPageID(ctx, pageID)
		if errors.Is(err, domain.ErrBrandNotFound) {
			s.log.InfoContext(ctx, "page not registered, syncing ad hoc", "page_id", pageID)
			return domain.Brand{PageID: pageID}, nil
		}
	default:
		return domain.Brand{}, ErrInvalidSelector
	}
	if errors.Is(err, domain.ErrBrandNotFound) {
		return domain.Brand{}, err
	}
	if err != nil {
		return domain.Brand{}, &domain.WatermarkStoreError{BrandID: brandID, Op: "get brand", Err: err}
	}
	if brandID != "" && pageID != "" {
		brand.PageID = pageID
	}
	return brand, nil
}

// syncBrand never returns an error: every failure is recorded on the result.
// The watermark moves only after a complete, non-truncated, fully dispatched pass.
func (s *Syncer) syncBrand(ctx context.Context, brand domain.Brand, runStart time.Time, opts RunOptions, honorCooldown bool) domain.BrandResult {
	ctx = observability.WithBrandID(ctx, brand.ID)
	ctx, span := observability.StartSpan(ctx, "adsync.brand", attribute.String("adsync.page_id", brand.PageID))
	defer span.End()

	res := domain.BrandResult{BrandID: brand.ID, PageID: brand.PageID}
	blog := &brandLog{log: s.log}
	done := func(status domain.BrandStatus, err error) domain.BrandResult {
		res.Status = status
		if err != nil {
			span.RecordError(err)
			res.ErrorKind = string(ClassifySyncError(err))
			res.Error = err.Error()
			blog.Error(ctx, "brand sync failed", "kind", res.ErrorKind, "error", err)
		}
		res.Logs = blog.lines
		s.metrics.RecordBrand(ctx, string(status), res.AdsFetched, res.TasksCreated, res.TasksSkipped, res.TasksFailed)
		return res
	}

	if strings.TrimSpace(brand.PageID) == "" {
		blog.Warn(ctx, "brand has no page id, skipping")
		return done(domain.BrandSkipped, nil)
	}
	if honorCooldown && brand.CoolingDown(runStart) {
		blog.Warn(ctx, "brand is rate limited, skipping", "until", brand.RateLimitedUntil.UTC().Format(time.RFC3339))
		return done(domain.BrandSkipped, nil)
	}

	cutoff := domain.CutoffFor(brand.LastFetchedAt, runStart, s.cfg.Lookback)
	res.Cutoff = cutoff

	fetched, err := s.fetcher.FetchNewAds(ctx, brand, cutoff)
	if err != nil {
		s.coolDown(ctx, brand, runStart, err, blog)
		return done(domain.BrandFailed, err)
	}
	res.Pages = fetched.Pages
	res.AdsFetched = len(fetched.Ads)
	res.Truncated = fetched.Truncated
	blog.Info(ctx, "fetched ads", "ads", len(fetched.Ads), "pages", fetched.Pages, "cutoff", cutoff.Format(time.RFC3339))

	if opts.DryRun {
		blog.Info(ctx, "dry run, nothing enqueued")
		return done(domain.BrandOK, nil)
	}

	dispatched := s.dispatcher.Dispatch(ctx, brand, fetched.All())
	res.TasksCreated = dispatched.Created
	res.TasksSkipped = dispatched.Skipped
	res.TasksFailed = dispatched.Failed
	if err := dispatched.Err(brand.ID); err != nil {
		return done(domain.BrandFailed, err)
	}
	blog.Info(ctx, "dispatched tasks", "created", dispatched.Created, "skipped", dispatched.Skipped)

	if fetched.Truncated {
		blog.Warn(ctx, "page limit reached, watermark left unchanged", "pages", fetched.Pages)
		return done(domain.BrandOK, nil)
	}
	if err := ctx.Err(); err != nil {
		return done(domain.BrandFailed, err)
	}
	if !brand.Registered() {
		return done(domain.BrandOK, nil)
	}
	if err := s.store.SetWatermark(ctx, brand.ID, runStart); err != nil {
		return done(domain.BrandFailed, &domain.WatermarkStoreError{BrandID: brand.ID, Op: "set watermark", Err: err})
	}
	res.WatermarkAdvanced = true
	return done(domain.BrandOK, nil)
}

func (s *Syncer) coolDown(ctx context.Context, brand domain.Brand, runStart time.Time, err error, blog *brandLog) {
	var rateLimit *domain.RateLimitError
	if !brand.Registered() || s.cfg.RateLimitCooldown <= 0 || !errors.As(err, &rateLimit) || ctx.Err() != nil {
		return
	}
	until := runStart.Add(s.cfg.RateLimitCooldown)
	if markErr := s.store.MarkRateLimited(ctx, brand.ID, until); markErr != nil {
		blog.Warn(ctx, "could not record rate limit cooldown", "error", markErr)
		return
	}
	blog.Warn(ctx, "brand rate limited, cooling down", "until", until.UTC().Format(time.RFC3339))
}

func (s *Syncer) newRun(opts RunOptions) domain.RunResult {
	return domain.RunResult{
		RunID:     s.newRunID(),
		StartedAt: s.now().UTC(),
		DryRun:    opts.DryRun,
		Logs:      []string{},
	}
}

func (s *Syncer) withRunTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RunTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RunTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Syncer) finish(ctx context.Context, mode string, run domain.RunResult) {
	s.metrics.RecordRun(ctx, mode, s.now().Sub(run.StartedAt))
	s.log.InfoContext(ctx, "sync run finished",
		"mode", mode,
		"brands_processed", run.BrandsProcessed,
		"brands_failed", run.BrandsFailed,
		"brands_skipped", run.BrandsSkipped,
		"ads_fetched", run.AdsFetched,
		"tasks_created", run.TasksCreated,
		"tasks_skipped", run.TasksSkipped,
		"dry_run", run.DryRun,
	)
}
