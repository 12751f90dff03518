package domain

import (
	"encoding/json"
	"time"
)

// Ad is one ad as returned by the ads API. It lives for a single sync pass.
type Ad struct {
	ID          string
	BrandID     string
	PageID      string
	PageName    string
	CreatedTime time.Time
	EndTime     *time.Time
	VideoURL    string
	AdURL       string
	Payload     json.RawMessage
}

// PageRequest addresses one page of a page's ad listing.
type PageRequest struct {
	PageID    string
	Since     time.Time
	PageToken string
}

// Page is one ads API response page.
type Page struct {
	Ads           []Ad
	NextPageToken string
}
