package db

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fr0stylo/adsync/internal/observability"
)

const maxSamplesPerQuery = 256

// QueryLatency summarizes the recent window of one registry or queue query.
type QueryLatency struct {
	Name   string
	Table  string
	Count  int
	Errors int
	P50    time.Duration
	P95    time.Duration
	Max    time.Duration
}

// queryInfo identifies a statement by its "-- name:" label and the table it touches.
type queryInfo struct {
	name  string
	table string
}

func parseQuery(query string) queryInfo {
	return queryInfo{name: queryName(query), table: queryTable(query)}
}

type queryWindow struct {
	table   string
	samples []time.Duration
	errors  int
}

type queryLatencyTracker struct {
	mu      sync.Mutex
	windows map[string]*queryWindow
}

func newQueryLatencyTracker() *queryLatencyTracker {
	return &queryLatencyTracker{windows: make(map[string]*queryWindow)}
}

// observe records one call. sql.ErrNoRows is a lookup miss, not a failure.
func (t *queryLatencyTracker) observe(info queryInfo, took time.Duration, err error) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[info.name]
	if !ok {
		w = &queryWindow{table: info.table}
		t.windows[info.name] = w
	}
	w.samples = append(w.samples, took)
	if len(w.samples) > maxSamplesPerQuery {
		w.samples = w.samples[len(w.samples)-maxSamplesPerQuery:]
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		w.errors++
	}
}

// snapshot groups stats by table, slowest p95 first within a table.
func (t *queryLatencyTracker) snapshot() []QueryLatency {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]QueryLatency, 0, len(t.windows))
	for name, w := range t.windows {
		if len(w.samples) == 0 {
			continue
		}
		sorted := slices.Clone(w.samples)
		slices.Sort(sorted)
		stats = append(stats, QueryLatency{
			Name:   name,
			Table:  w.table,
			Count:  len(sorted),
			Errors: w.errors,
			P50:    sorted[(len(sorted)-1)/2],
			P95:    sorted[int(float64(len(sorted)-1)*0.95)],
			Max:    sorted[len(sorted)-1],
		})
	}

	slices.SortFunc(stats, func(a, b QueryLatency) int {
		if c := strings.Compare(a.Table, b.Table); c != 0 {
			return c
		}
		if a.P95 != b.P95 {
			if a.P95 > b.P95 {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return stats
}

// instrumentedDBTX wraps every statement in a db span and a latency sample.
type instrumentedDBTX struct {
	inner   DBTX
	tracker *queryLatencyTracker
}

func newInstrumentedDBTX(inner DBTX, tracker *queryLatencyTracker) DBTX {
	if tracker == nil {
		return inner
	}
	return &instrumentedDBTX{inner: inner, tracker: tracker}
}

func (d *instrumentedDBTX) track(ctx context.Context, query, operation string) (context.Context, func(error)) {
	info := parseQuery(query)
	ctx, span := observability.StartDBSpan(ctx, info.name, operation)
	span.SetAttributes(attribute.String("db.collection.name", info.table))
	start := time.Now()
	return ctx, func(err error) {
		d.tracker.observe(info, time.Since(start), err)
		if !errors.Is(err, sql.ErrNoRows) {
			span.RecordError(err)
		}
		span.End()
	}
}

func (d *instrumentedDBTX) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, done := d.track(ctx, query, "exec")
	result, err := d.inner.ExecContext(ctx, query, args...)
	done(err)
	return result, err
}

func (d *instrumentedDBTX) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	ctx, done := d.track(ctx, query, "prepare")
	stmt, err := d.inner.PrepareContext(ctx, query)
	done(err)
	return stmt, err
}

func (d *instrumentedDBTX) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, done := d.track(ctx, query, "query")
	rows, err := d.inner.QueryContext(ctx, query, args...)
	done(err)
	return rows, err
}

// QueryRowContext only sees errors raised before Scan.
func (d *instrumentedDBTX) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, done := d.track(ctx, query, "query_row")
	row := d.inner.QueryRowContext(ctx, query, args...)
	done(row.Err())
	return row
}

func queryName(query string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(query), "\n")
	parts := strings.Fields(first)
	if len(parts) < 3 || parts[0] != "--" || parts[1] != "name:" {
		return "unknown"
	}
	return parts[2]
}

// queryTable returns the first table named after FROM, INTO or UPDATE.
func queryTable(query string) string {
	fields := strings.Fields(query)
	for i := 0; i+1 < len(fields); i++ {
		switch strings.ToUpper(fields[i]) {
		case "FROM", "INTO", "UPDATE":
			table := strings.Trim(fields[i+1], "`\"();")
			if table != "" {
				return strings.ToLower(table)
			}
		}
	}
	return "unknown"
}
