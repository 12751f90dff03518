package domain

import "time"

// DefaultLookback is the window used for brands that have never been synced.
const DefaultLookback = 10 * 24 * time.Hour

// Brand is one tracked advertiser and its sync watermark.
type Brand struct {
	ID     string
	PageID string
	Name   string
	// LastFetchedAt is the high-water mark below which ads are assumed dispatched.
	LastFetchedAt    *time.Time
	RateLimitedUntil *time.Time
}

// Registered reports whether the brand comes from the registry. Ad-hoc page
// syncs have no id and keep no watermark.
func (b Brand) Registered() bool {
	return b.ID != ""
}

// CoolingDown reports whether the brand is inside a rate-limit cooldown at now.
func (b Brand) CoolingDown(now time.Time) bool {
	return b.RateLimitedUntil != nil && now.Before(*b.RateLimitedUntil)
}

// CutoffFor returns the inclusive lower bound for new ads.
func CutoffFor(lastFetchedAt *time.Time, now time.Time, lookback time.Duration) time.Time {
	if lastFetchedAt != nil && !lastFetchedAt.IsZero() {
		return lastFetchedAt.UTC()
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return now.Add(-lookback).UTC()
}
