package httpqueue

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	cebinding "github.com/cloudevents/sdk-go/v2/binding"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"

	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/pkg/taskpublisher"
)

// dedupingWorker accepts each event id once and answers 409 afterwards.
func dedupingWorker(t *testing.T) *httptest.Server {
	t.Helper()
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, err := cebinding.ToEvent(r.Context(), cehttp.NewMessageFromHttpRequest(r))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		id := event.ID()
		mu.Lock()
		defer mu.Unlock()
		if seen[id] {
			w.WriteHeader(http.StatusConflict)
			return
		}
		seen[id] = true
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnqueueMapsConflictToDuplicate(t *testing.T) {
	t.Parallel()

	srv := dedupingWorker(t)
	queue := New(taskpublisher.Client{Endpoint: srv.URL, Timeout: time.Second})
	task, err := domain.NewTask(domain.Brand{ID: "b1", PageID: "444"}, domain.Ad{ID: "111", VideoURL: "https://cdn.example/111.mp4"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	first, err := queue.Enqueue(context.Background(), task)
	if err != nil || first != domain.EnqueueCreated {
		t.Fatalf("first enqueue: result=%s err=%v", first, err)
	}
	second, err := queue.Enqueue(context.Background(), task)
	if err != nil || second != domain.EnqueueDuplicate {
		t.Fatalf("second enqueue: result=%s err=%v", second, err)
	}
}

func TestEnqueueMapsBadRequestToInvalidTask(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	queue := New(taskpublisher.Client{Endpoint: srv.URL})
	task, _ := domain.NewTask(domain.Brand{ID: "b1", PageID: "444"}, domain.Ad{ID: "111", VideoURL: "https://cdn.example/111.mp4"})
	if _, err := queue.Enqueue(context.Background(), task); !errors.Is(err, domain.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask, got %v", err)
	}
}
