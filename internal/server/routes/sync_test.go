package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/adsync/internal/app/domain"
	appservices "github.com/fr0stylo/adsync/internal/app/services"
	"github.com/fr0stylo/adsync/internal/auth"
)

type runnerFake struct {
	mu      sync.Mutex
	allRuns int
	oneRuns []appservices.BrandSelector
	opts    []appservices.RunOptions
	result  domain.RunResult
	err     error
}

func (f *runnerFake) RunAll(_ context.Context, opts appservices.RunOptions) (domain.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allRuns++
	f.opts = append(f.opts, opts)
	return f.result, f.err
}

func (f *runnerFake) RunOne(_ context.Context, sel appservices.BrandSelector, opts appservices.RunOptions) (domain.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oneRuns = append(f.oneRuns, sel)
	f.opts = append(f.opts, opts)
	return f.result, f.err
}

type tokenAuth struct{}

func (tokenAuth) Authenticate(_ context.Context, header string) (auth.Claims, error) {
	switch header {
	case "":
		return auth.Claims{}, &domain.AuthError{Code: domain.AuthMissingToken}
	case "Bearer good":
		return auth.Claims{Subject: "scheduler"}, nil
	default:
		return auth.Claims{}, &domain.AuthError{Code: domain.AuthInvalidToken}
	}
}

func newSyncServer(runner *runnerFake) *echo.Echo {
	e := echo.New()
	HealthRoutes{}.RegisterRoutes(e)
	NewSyncRoutes(runner, tokenAuth{}, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(e)
	return e
}

func doRequest(e *echo.Echo, method, target, authHeader, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	e := newSyncServer(&runnerFake{})
	for _, path := range []string{"/health", "/_healthz"} {
		rec := doRequest(e, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Fatalf("%s: got=%d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestRunWithoutTokenIsRejectedBeforeRunning(t *testing.T) {
	t.Parallel()

	runner := &runnerFake{}
	e := newSyncServer(runner)

	rec := doRequest(e, http.MethodPost, "/run", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != domain.AuthMissingToken {
		t.Fatalf("unexpected error code: %v", got)
	}

	rec = doRequest(e, http.MethodPost, "/run-page", "Bearer forged", `{"page_id":"444"}`)
	if rec.Code != http.StatusUnauthorized || decodeBody(t, rec)["error"] != domain.AuthInvalidToken {
		t.Fatalf("expected invalid-token 401, got %d %s", rec.Code, rec.Body.String())
	}
	if runner.allRuns != 0 || len(runner.oneRuns) != 0 {
		t.Fatalf("runner must not be called: all=%d one=%d", runner.allRuns, len(runner.oneRuns))
	}
}

func TestRunReturnsCounters(t *testing.T) {
	t.Parallel()

	runner := &runnerFake{result: domain.RunResult{
		BrandsProcessed: 2,
		BrandsFailed:    1,
		AdsFetched:      7,
		TasksCreated:    5,
		TasksSkipped:    2,
		Logs:            []string{"brand b1: fetched ads"},
	}}
	e := newSyncServer(runner)

	rec := doRequest(e, http.MethodPost, "/run?dry_run=true", "Bearer good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["brandsProcessed"] != float64(2) || body["brandsFailed"] != float64(1) {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["tasksCreated"] != float64(5) || body["tasksSkipped"] != float64(2) || body["adsFetched"] != float64(7) {
		t.Fatalf("unexpected counters: %v", body)
	}
	if logs, ok := body["logs"].([]any); !ok || len(logs) != 1 {
		t.Fatalf("unexpected logs: %v", body["logs"])
	}
	if !runner.opts[0].DryRun {
		t.Fatal("expected dry run option")
	}
}

func TestRunSurfacesRunLevelFailure(t *testing.T) {
	t.Parallel()

	e := newSyncServer(&runnerFake{err: errors.New("watermark store: list brands: disk I/O error")})
	rec := doRequest(e, http.MethodPost, "/run", "Bearer good", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "watermark store: list brands: disk I/O error" {
		t.Fatalf("unexpected error: %v", got)
	}
}

func TestRunPageSelectsBrand(t *testing.T) {
	t.Parallel()

	runner := &runnerFake{result: domain.RunResult{
		BrandsProcessed: 1,
		Brands:          []domain.BrandResult{{BrandID: "b1", PageID: "444", Status: domain.BrandOK}},
	}}
	e := newSyncServer(runner)

	rec := doRequest(e, http.MethodPost, "/run-page", "Bearer good", `{"page_id":"444"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["brand_id"] != "b1" || body["page_id"] != "444" || body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
	if len(runner.oneRuns) != 1 || runner.oneRuns[0].PageID != "444" || runner.oneRuns[0].BrandID != "" {
		t.Fatalf("unexpected selector: %+v", runner.oneRuns)
	}
}

func TestRunPageAcceptsQueryParameters(t *testing.T) {
	t.Parallel()

	runner := &runnerFake{}
	e := newSyncServer(runner)

	rec := doRequest(e, http.MethodPost, "/run-page?brand_id=b1&page_id=999", "Bearer good", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if runner.oneRuns[0] != (appservices.BrandSelector{BrandID: "b1", PageID: "999"}) {
		t.Fatalf("unexpected selector: %+v", runner.oneRuns[0])
	}
}

func TestRunPageErrorStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"no selector", appservices.ErrInvalidSelector, http.StatusBadRequest},
		{"unknown brand", domain.ErrBrandNotFound, http.StatusNotFound},
		{"store failure", &domain.WatermarkStoreError{Op: "get brand", Err: errors.New("locked")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newSyncServer(&runnerFake{err: tc.err})
			rec := doRequest(e, http.MethodPost, "/run-page", "Bearer good", `{}`)
			if rec.Code != tc.want {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tc.want)
			}
		})
	}
}
