package taskpublisher

import (
	"errors"
	"net/http"
	"time"
)

// ErrDuplicate is returned when the worker already holds a task with the same id.
var ErrDuplicate = errors.New("task already exists")

const (
	DefaultSource = "adsync/sync"
	DefaultType   = "io.adsync.ad.video.v1"
)

type Client struct {
	Endpoint   string
	Token      string
	Secret     string
	Source     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Task is one unit of work for the downstream video worker. ID doubles as the
// CloudEvent id, so a worker that dedupes on event ids sees each ad once.
type Task struct {
	ID        string
	Type      string
	BrandID   string
	AdID      string
	PageID    string
	CreatedAt time.Time
	// Data is the JSON payload carried in the event body.
	Data []byte
}
