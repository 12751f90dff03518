package taskpublisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	ceevent "github.com/cloudevents/sdk-go/v2/event"
)

// BuildEventBody encodes task as a structured-mode CloudEvent.
func BuildEventBody(task Task, source string) ([]byte, error) {
	id := strings.TrimSpace(task.ID)
	if id == "" {
		return nil, fmt.Errorf("task id is required")
	}
	if len(task.Data) == 0 || !json.Valid(task.Data) {
		return nil, fmt.Errorf("task %s: data must be valid json", id)
	}

	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultSource
	}
	eventType := strings.TrimSpace(task.Type)
	if eventType == "" {
		eventType = DefaultType
	}

	event := ceevent.New()
	event.SetID(id)
	event.SetSource(source)
	event.SetType(eventType)
	if task.AdID != "" {
		event.SetSubject("ads/" + task.AdID)
	}
	occurred := task.CreatedAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	event.SetTime(occurred.UTC())
	if task.BrandID != "" {
		event.SetExtension("brandid", task.BrandID)
	}
	if task.PageID != "" {
		event.SetExtension("pageid", task.PageID)
	}
	if err := event.SetData(ceevent.ApplicationJSON, json.RawMessage(task.Data)); err != nil {
		return nil, fmt.Errorf("set event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return json.Marshal(event)
}
