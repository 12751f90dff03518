package kafkaqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fr0stylo/adsync/internal/app/domain"
	"github.com/fr0stylo/adsync/internal/observability"
	"github.com/fr0stylo/adsync/pkg/taskpublisher"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type claimStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Queue publishes tasks to a Kafka topic, keyed by brand so one brand's ads stay ordered.
type Queue struct {
	writer messageWriter
	claims claimStore
	source string
	log    *slog.Logger
}

func NewWriter(brokers []string, topic string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka queue requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka queue requires a topic")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
	}, nil
}

func New(writer messageWriter, claims claimStore, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{writer: writer, claims: claims, source: taskpublisher.DefaultSource, log: log}
}

func (q *Queue) Enqueue(ctx context.Context, task domain.Task) (domain.EnqueueResult, error) {
	ctx, span := observability.StartClientSpan(ctx, "queue.enqueue",
		attribute.String("adsync.queue", "kafka"),
		attribute.String("adsync.dedupe_key", task.DedupeKey),
	)
	defer span.End()

	value, err := taskpublisher.BuildEventBody(taskpublisher.Task{
		ID:        task.DedupeKey,
		BrandID:   task.BrandID,
		AdID:      task.AdID,
		PageID:    task.PageID,
		CreatedAt: task.CreatedTime,
		Data:      task.Body,
	}, q.source)
	if err != nil {
		return 0, errors.Join(domain.ErrInvalidTask, err)
	}

	claimed, err := q.claims.Claim(ctx, task.DedupeKey)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if !claimed {
		return domain.EnqueueDuplicate, nil
	}

	key := task.BrandID
	if key == "" {
		key = task.PageID
	}
	err = q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "dedupe_key", Value: []byte(task.DedupeKey)},
			{Key: "content-type", Value: []byte("application/cloudevents+json")},
		},
	})
	if err != nil {
		span.RecordError(err)
		// a write that never landed must not leave the key claimed
		if releaseErr := q.claims.Release(context.WithoutCancel(ctx), task.DedupeKey); releaseErr != nil {
			q.log.WarnContext(ctx, "release dedupe claim failed", "dedupe_key", task.DedupeKey, "error", releaseErr)
		}
		return 0, fmt.Errorf("write task %s: %w", task.DedupeKey, err)
	}
	return domain.EnqueueCreated, nil
}

func (q *Queue) Close() error {
	return q.writer.Close()
}
