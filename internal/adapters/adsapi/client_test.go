package adsapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fr0stylo/adsync/internal/app/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:   srv.URL + "/",
		Host:      "ads.example",
		APIKey:    "secret-key",
		Country:   "IN",
		MediaType: "VIDEO",
		Status:    "ACTIVE",
	}, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchPageSendsQueryAndHeaders(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company/ads" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		checks := map[string]string{
			"pageId":         "444",
			"status":         "ACTIVE",
			"country":        "IN",
			"media_type":     "VIDEO",
			"trim":           "false",
			"cursor":         "abc",
			"start_date_min": "2026-03-01",
			"first":          "",
		}
		for key, want := range checks {
			if got := q.Get(key); got != want {
				t.Errorf("query %s: got=%q want=%q", key, got, want)
			}
		}
		if got := r.Header.Get("x-rapidapi-key"); got != "secret-key" {
			t.Errorf("unexpected api key header: %q", got)
		}
		if got := r.Header.Get("x-rapidapi-host"); got != "ads.example" {
			t.Errorf("unexpected host header: %q", got)
		}
		_, _ = w.Write([]byte(`{"results":[],"cursor":""}`))
	})

	page, err := client.FetchPage(context.Background(), domain.PageRequest{PageID: "444", Since: since, PageToken: "abc"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Ads) != 0 || page.NextPageToken != "" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestFetchPageDecodesAds(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"cursor": "next-1",
			"results": [
				{
					"ad_archive_id": "111",
					"page_id": 444,
					"page_name": "Acme",
					"start_date": 1772000000,
					"end_date": "1772086400",
					"url": "https://ads.example/111",
					"snapshot": {"videos": [{"video_hd_url": "", "video_sd_url": "https://cdn.example/111-sd.mp4"}]}
				},
				{
					"ad_archive_id": "222",
					"start_date": 1771990000,
					"snapshot": {"page_name": "Acme Snap", "cards": [{"video_sd_url": "https://cdn.example/222.mp4"}]}
				},
				{
					"ad_archive_id": "333",
					"snapshot": {}
				}
			]
		}`))
	})

	page, err := client.FetchPage(context.Background(), domain.PageRequest{PageID: "444"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.NextPageToken != "next-1" {
		t.Fatalf("unexpected cursor: %q", page.NextPageToken)
	}
	if len(page.Ads) != 2 {
		t.Fatalf("expected ads without start date to be dropped: got=%d want=2", len(page.Ads))
	}

	first := page.Ads[0]
	if first.ID != "111" || first.PageID != "444" || first.PageName != "Acme" {
		t.Fatalf("unexpected first ad: %+v", first)
	}
	if !first.CreatedTime.Equal(time.Unix(1772000000, 0)) {
		t.Fatalf("unexpected created time: %s", first.CreatedTime)
	}
	if first.EndTime == nil || !first.EndTime.Equal(time.Unix(1772086400, 0)) {
		t.Fatalf("unexpected end time: %v", first.EndTime)
	}
	if first.VideoURL != "https://cdn.example/111-sd.mp4" {
		t.Fatalf("expected sd fallback, got %q", first.VideoURL)
	}
	if len(first.Payload) == 0 {
		t.Fatal("expected raw payload to be kept")
	}

	second := page.Ads[1]
	if second.VideoURL != "https://cdn.example/222.mp4" || second.PageName != "Acme Snap" {
		t.Fatalf("unexpected card fallback: %+v", second)
	}
}

func TestFetchPageMapsThrottling(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	})

	_, err := client.FetchPage(context.Background(), domain.PageRequest{PageID: "444"})
	var rateLimit *domain.RateLimitError
	if !errors.As(err, &rateLimit) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rateLimit.RetryAfter != 30*time.Second {
		t.Fatalf("unexpected retry after: %s", rateLimit.RetryAfter)
	}
}

func TestFetchPageMapsInBodyRateLimitCode(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":1675004,"message":"Application request limit reached"}}`))
	})

	_, err := client.FetchPage(context.Background(), domain.PageRequest{PageID: "444"})
	var rateLimit *domain.RateLimitError
	if !errors.As(err, &rateLimit) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
}

func TestFetchPageMapsServerErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.FetchPage(context.Background(), domain.PageRequest{PageID: "444"})
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("expected APIError 502, got %v", err)
	}
}

func TestFetchPageRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := client.FetchPage(context.Background(), domain.PageRequest{PageID: "444"})
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"120", 2 * time.Minute},
		{"-3", 0},
		{now.Add(45 * time.Second).Format(http.TimeFormat), 45 * time.Second},
		{"soon", 0},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.in, now); got != tc.want {
			t.Fatalf("parseRetryAfter(%q): got=%s want=%s", tc.in, got, tc.want)
		}
	}
}

func TestFetchPageForwardsPageSize(t *testing.T) {
	t.Parallel()

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("first")
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	t.Cleanup(srv.Close)

	client := New(Config{BaseURL: srv.URL, PageSize: 15}, srv.Client(), nil)
	if _, err := client.FetchPage(context.Background(), domain.PageRequest{PageID: "444"}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != "15" {
		t.Fatalf("unexpected page size: got=%q want=%q", got, "15")
	}
}
