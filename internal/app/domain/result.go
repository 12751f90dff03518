package domain

import "time"

type BrandStatus string

const (
	BrandOK      BrandStatus = "ok"
	BrandFailed  BrandStatus = "failed"
	BrandSkipped BrandStatus = "skipped"
)

// BrandResult is the outcome of syncing one brand. It is owned by the
// goroutine that produced it until handed to RunResult.Add.
type BrandResult struct {
	BrandID           string      `json:"brand_id"`
	PageID            string      `json:"page_id"`
	Status            BrandStatus `json:"status"`
	Cutoff            time.Time   `json:"cutoff"`
	Pages             int         `json:"pages"`
	AdsFetched        int         `json:"adsFetched"`
	TasksCreated      int         `json:"tasksCreated"`
	TasksSkipped      int         `json:"tasksSkipped"`
	TasksFailed       int         `json:"tasksFailed"`
	Truncated         bool        `json:"truncated,omitempty"`
	WatermarkAdvanced bool        `json:"watermarkAdvanced"`
	ErrorKind         string      `json:"errorKind,omitempty"`
	Error             string      `json:"error,omitempty"`
	Logs              []string    `json:"logs,omitempty"`
}

// RunResult aggregates one invocation. It is never persisted.
type RunResult struct {
	RunID           string        `json:"runId,omitempty"`
	StartedAt       time.Time     `json:"startedAt"`
	DryRun          bool          `json:"dryRun,omitempty"`
	BrandsProcessed int           `json:"brandsProcessed"`
	BrandsFailed    int           `json:"brandsFailed"`
	BrandsSkipped   int           `json:"brandsSkipped"`
	AdsFetched      int           `json:"adsFetched"`
	TasksCreated    int           `json:"tasksCreated"`
	TasksSkipped    int           `json:"tasksSkipped"`
	TasksFailed     int           `json:"tasksFailed"`
	Logs            []string      `json:"logs"`
	Brands          []BrandResult `json:"brands,omitempty"`
}

// Add merges one brand result. Callers merge from a single goroutine.
func (r *RunResult) Add(b BrandResult) {
	switch b.Status {
	case BrandOK:
		r.BrandsProcessed++
	case BrandFailed:
		r.BrandsFailed++
	case BrandSkipped:
		r.BrandsSkipped++
	}
	r.AdsFetched += b.AdsFetched
	r.TasksCreated += b.TasksCreated
	r.TasksSkipped += b.TasksSkipped
	r.TasksFailed += b.TasksFailed
	prefix := "brand " + b.BrandID + ": "
	if b.BrandID == "" {
		prefix = "page " + b.PageID + ": "
	}
	for _, line := range b.Logs {
		r.Logs = append(r.Logs, prefix+line)
	}
	r.Brands = append(r.Brands, b)
}
