package adsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/internal/observability"
)

// rateLimitCode is the in-body error code the ads library returns when throttled.
const rateLimitCode = "1675004"

const maxResponseBytes = 8 << 20

type Config struct {
	BaseURL   string
	Host      string
	APIKey    string
	Country   string
	MediaType string
	Status    string
	// RequestsPerSec caps outbound calls across all brands. Zero disables the limiter.
	RequestsPerSec float64
	PageSize       int
}

// Client reads ads of one page id from the ads library API, one page per call.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func New(cfg Config, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = observability.InstrumentedHTTPClient(30 * time.Second)
	}
	if log == nil {
		log = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Client{cfg: cfg, http: httpClient, limiter: limiter, log: log}
}

// FetchPage returns one page of ads, newest first. req.Since is forwarded as a
// hint only; the caller still filters by creation time.
func (c *Client) FetchPage(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	ctx, span := observability.StartClientSpan(ctx, "adsapi.fetch_page",
		attribute.String("adsync.page_id", req.PageID),
		attribute.Bool("adsync.has_cursor", req.PageToken != ""),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Page{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(req), nil)
	if err != nil {
		return domain.Page{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-rapidapi-host", c.cfg.Host)
	httpReq.Header.Set("x-rapidapi-key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return domain.Page{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		return domain.Page{}, fmt.Errorf("read response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusTooManyRequests {
		err := &domain.RateLimitError{
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Body:       string(body),
		}
		span.RecordError(err)
		return domain.Page{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := &domain.APIError{Status: resp.StatusCode, Body: string(body)}
		span.RecordError(err)
		return domain.Page{}, err
	}

	page, err := c.decodePage(resp.StatusCode, body)
	if err != nil {
		span.RecordError(err)
		return domain.Page{}, err
	}
	span.SetAttributes(attribute.Int("adsync.page_ads", len(page.Ads)))
	return page, nil
}

func (c *Client) pageURL(req domain.PageRequest) string {
	q := url.Values{}
	q.Set("pageId", req.PageID)
	q.Set("trim", "false")
	if c.cfg.Status != "" {
		q.Set("status", c.cfg.Status)
	}
	if c.cfg.Country != "" {
		q.Set("country", c.cfg.Country)
	}
	if c.cfg.MediaType != "" {
		q.Set("media_type", c.cfg.MediaType)
	}
	if c.cfg.PageSize > 0 {
		q.Set("first", strconv.Itoa(c.cfg.PageSize))
	}
	if !req.Since.IsZero() {
		q.Set("start_date_min", req.Since.UTC().Format("2006-01-02"))
	}
	if req.PageToken != "" {
		q.Set("cursor", req.PageToken)
	}
	return c.cfg.BaseURL + "/company/ads?" + q.Encode()
}

type pageResponse struct {
	Results []json.RawMessage `json:"results"`
	Cursor  string            `json:"cursor"`
	Error   json.RawMessage   `json:"error"`
}

type adItem struct {
	AdArchiveID flexString   `json:"ad_archive_id"`
	PageID      flexString   `json:"page_id"`
	PageName    string       `json:"page_name"`
	StartDate   epochSeconds `json:"start_date"`
	EndDate     epochSeconds `json:"end_date"`
	URL         string       `json:"url"`
	Snapshot    struct {
		PageName string      `json:"page_name"`
		LinkURL  string      `json:"link_url"`
		Videos   []videoURLs `json:"videos"`
		Cards    []videoURLs `json:"cards"`
	} `json:"snapshot"`
}

type videoURLs struct {
	HD string `json:"video_hd_url"`
	SD string `json:"video_sd_url"`
}

func (v videoURLs) best() string {
	if v.HD != "" {
		return v.HD
	}
	return v.SD
}

func (c *Client) decodePage(status int, body []byte) (domain.Page, error) {
	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Page{}, &domain.APIError{Status: status, Body: "decode response: " + err.Error()}
	}
	if errBody := bytes.TrimSpace(resp.Error); len(errBody) > 0 && !bytes.Equal(errBody, []byte("null")) {
		if isRateLimitBody(errBody) {
			return domain.Page{}, &domain.RateLimitError{Status: status, Body: string(errBody)}
		}
		return domain.Page{}, &domain.APIError{Status: status, Body: string(errBody)}
	}

	page := domain.Page{Ads: make([]domain.Ad, 0, len(resp.Results)), NextPageToken: strings.TrimSpace(resp.Cursor)}
	for _, raw := range resp.Results {
		var item adItem
		if err := json.Unmarshal(raw, &item); err != nil {
			c.log.Warn("skipping undecodable ad", "error", err)
			continue
		}
		if item.StartDate.IsZero() {
			c.log.Debug("skipping ad without start date", "ad_id", string(item.AdArchiveID))
			continue
		}
		page.Ads = append(page.Ads, toAd(item, raw))
	}
	return page, nil
}

func toAd(item adItem, raw json.RawMessage) domain.Ad {
	ad := domain.Ad{
		ID:          strings.TrimSpace(string(item.AdArchiveID)),
		PageID:      strings.TrimSpace(string(item.PageID)),
		PageName:    strings.TrimSpace(item.PageName),
		CreatedTime: item.StartDate.Time,
		AdURL:       item.URL,
		Payload:     raw,
	}
	if ad.PageName == "" {
		ad.PageName = strings.TrimSpace(item.Snapshot.PageName)
	}
	if ad.AdURL == "" {
		ad.AdURL = item.Snapshot.LinkURL
	}
	if !item.EndDate.IsZero() {
		end := item.EndDate.Time
		ad.EndTime = &end
	}
	if len(item.Snapshot.Videos) > 0 {
		ad.VideoURL = item.Snapshot.Videos[0].best()
	}
	for _, card := range item.Snapshot.Cards {
		if ad.VideoURL != "" {
			break
		}
		ad.VideoURL = card.best()
	}
	return ad
}

func isRateLimitBody(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, rateLimitCode) || strings.Contains(lower, "rate limit")
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// epochSeconds decodes a unix timestamp sent as a number or a numeric string.
type epochSeconds struct{ time.Time }

func (e *epochSeconds) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("epoch seconds %q: %w", s, err)
	}
	if f <= 0 {
		return nil
	}
	e.Time = time.Unix(int64(f), 0).UTC()
	return nil
}

// flexString decodes ids that arrive as either strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(b, &out); err != nil {
			return err
		}
		*f = flexString(out)
		return nil
	}
	*f = flexString(s)
	return nil
}
