// Package bootstrap assembles the sync engine from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fr0stylo/adsync/internal/adapters/adsapi"
	"github.com/fr0stylo/adsync/internal/adapters/httpqueue"
	"github.com/fr0stylo/adsync/internal/adapters/kafkaqueue"
	"github.com/fr0stylo/adsync/internal/adapters/sqlite"
	"github.com/fr0stylo/adsync/internal/app/ports"
	appservices "github.com/fr0stylo/adsync/internal/app/services"
	"github.com/fr0stylo/adsync/internal/auth"
	"github.com/fr0stylo/adsync/internal/config"
	"github.com/fr0stylo/adsync/internal/db"
	"github.com/fr0stylo/adsync/internal/observability"
	"github.com/fr0stylo/adsync/pkg/taskpublisher"
)

// NewSyncer wires the ads client, the configured queue backend and the brand
// store into a Syncer. The returned close function releases queue connections.
func NewSyncer(ctx context.Context, cfg config.Config, database *db.Database, log *slog.Logger) (*appservices.Syncer, func() error, error) {
	queue, closeQueue, err := NewQueue(ctx, cfg, database, log)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := observability.NewSyncMetrics()
	if err != nil {
		log.Warn("sync metrics disabled", "error", err)
	}

	api := adsapi.New(adsapi.Config{
		BaseURL:        cfg.AdsAPI.BaseURL,
		Host:           cfg.AdsAPI.Host,
		APIKey:         cfg.AdsAPI.APIKey,
		Country:        cfg.AdsAPI.Country,
		MediaType:      cfg.AdsAPI.MediaType,
		Status:         cfg.AdsAPI.Status,
		RequestsPerSec: cfg.AdsAPI.RequestsPerSec,
		PageSize:       cfg.AdsAPI.PageSize,
	}, observability.InstrumentedHTTPClient(cfg.Sync.CallTimeout), log)

	fetcher := appservices.NewFetcher(api, appservices.FetchConfig{
		MaxPages:         cfg.Sync.MaxPages,
		MaxRetries:       cfg.Sync.FetchMaxRetries,
		BackoffBase:      cfg.Sync.FetchBackoffBase,
		BackoffMax:       cfg.Sync.FetchBackoffMax,
		RateLimitBackoff: cfg.Sync.RateLimitBackoff,
		CallTimeout:      cfg.Sync.CallTimeout,
	}, log)
	dispatcher := appservices.NewDispatcher(queue, appservices.DispatchConfig{
		MaxRetries:  cfg.Sync.DispatchMaxRetries,
		BackoffBase: cfg.Sync.DispatchBackoffBase,
		CallTimeout: cfg.Sync.CallTimeout,
	}, log)

	syncer := appservices.NewSyncer(sqlite.NewBrandStore(database), fetcher, dispatcher, appservices.SyncConfig{
		Lookback:          cfg.Sync.Lookback,
		Concurrency:       cfg.Sync.Concurrency,
		RunTimeout:        cfg.Sync.RunTimeout,
		RateLimitCooldown: cfg.Sync.RateLimitCooldown,
	}, appservices.WithLogger(log), appservices.WithMetrics(metrics))

	return syncer, closeQueue, nil
}

// NewQueue returns the task queue selected by ADSYNC_QUEUE_BACKEND.
func NewQueue(ctx context.Context, cfg config.Config, database *db.Database, log *slog.Logger) (ports.TaskQueue, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Queue.Backend {
	case config.QueueSQLite:
		return sqlite.NewTaskQueue(database), noop, nil
	case config.QueueHTTP:
		return httpqueue.New(taskpublisher.Client{
			Endpoint:   cfg.Queue.WorkerURL,
			Token:      cfg.Queue.WorkerToken,
			Secret:     cfg.Queue.WorkerSecret,
			HTTPClient: observability.InstrumentedHTTPClient(cfg.Sync.CallTimeout),
		}), noop, nil
	case config.QueueKafka:
		redisClient, err := kafkaqueue.ConnectRedis(ctx, cfg.Queue.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		writer, err := kafkaqueue.NewWriter(cfg.Queue.KafkaBrokers, cfg.Queue.KafkaTopic)
		if err != nil {
			_ = redisClient.Close()
			return nil, nil, err
		}
		queue := kafkaqueue.New(writer, kafkaqueue.NewRedisClaims(redisClient, cfg.Queue.DedupeTTL), log)
		return queue, func() error {
			return errors.Join(queue.Close(), redisClient.Close())
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}

// NewGate builds the bearer token verifier for the trigger server.
func NewGate(cfg config.Config) (*auth.Gate, error) {
	authCfg := auth.Config{
		Audiences:  cfg.Auth.Audiences,
		Issuers:    cfg.Auth.Issuers,
		HMACSecret: cfg.Auth.HMACSecret,
		Bypass:     cfg.AuthBypass(),
	}
	if authCfg.HMACSecret == "" && cfg.Auth.JWKSURL != "" {
		authCfg.Keys = auth.NewJWKS(cfg.Auth.JWKSURL, observability.InstrumentedHTTPClient(cfg.Sync.CallTimeout), 0)
	}
	return auth.NewGate(authCfg)
}
