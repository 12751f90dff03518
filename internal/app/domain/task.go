package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DispatchRecord is the idempotency token presented to a task queue.
type DispatchRecord struct {
	DedupeKey string
	BrandID   string
	AdID      string
}

// DedupeKey derives the queue dedupe name for an ad of a brand.
// The result only contains [a-z0-9-] so it is usable as a task or message name.
func DedupeKey(brandID, adID string) string {
	sum := sha256.Sum256([]byte(brandID + "\x00" + adID))
	return "ad-" + hex.EncodeToString(sum[:16])
}

func NewDispatchRecord(brandID, adID string) DispatchRecord {
	return DispatchRecord{DedupeKey: DedupeKey(brandID, adID), BrandID: brandID, AdID: adID}
}

// TaskPayload is the JSON body handed to the downstream worker.
type TaskPayload struct {
	AdID        string `json:"ad_id"`
	BrandID     string `json:"brand_id"`
	PageID      string `json:"page_id"`
	CompanyName string `json:"company_name"`
	VideoURL    string `json:"video_url"`
	AdURL       string `json:"ad_url,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
}

// Task is a dispatch record plus its encoded payload.
type Task struct {
	DispatchRecord
	PageID      string
	CreatedTime time.Time
	Body        []byte
}

// NewTask builds the work item for ad. Ads without an id or video are not dispatchable.
func NewTask(brand Brand, ad Ad) (Task, error) {
	adID := strings.TrimSpace(ad.ID)
	if adID == "" {
		return Task{}, fmt.Errorf("%w: missing ad id", ErrInvalidTask)
	}
	if strings.TrimSpace(ad.VideoURL) == "" {
		return Task{}, fmt.Errorf("%w: ad %s has no video url", ErrInvalidTask, adID)
	}

	company := strings.TrimSpace(brand.Name)
	if company == "" {
		company = strings.TrimSpace(ad.PageName)
	}
	pageID := ad.PageID
	if pageID == "" {
		pageID = brand.PageID
	}
	payload := TaskPayload{
		AdID:        adID,
		BrandID:     brand.ID,
		PageID:      pageID,
		CompanyName: company,
		VideoURL:    ad.VideoURL,
		AdURL:       ad.AdURL,
		StartDate:   ad.CreatedTime.UTC().Format(time.RFC3339),
	}
	if ad.EndTime != nil {
		payload.EndDate = ad.EndTime.UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("encode task payload: %w", err)
	}

	return Task{
		DispatchRecord: NewDispatchRecord(brand.ID, adID),
		PageID:         pageID,
		CreatedTime:    ad.CreatedTime,
		Body:           body,
	}, nil
}

// EnqueueResult is the non-error outcome of an enqueue call.
type EnqueueResult int

const (
	EnqueueCreated EnqueueResult = iota + 1
	EnqueueDuplicate
)

func (r EnqueueResult) String() string {
	switch r {
	case EnqueueCreated:
		return "created"
	case EnqueueDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}
