// Package control is the composition root: it wires the status store, the
// recovery dispatcher, the retry worker, the catalog sync chain, and the
// ops surfaces (health, metrics) into one service with an explicit
// Start/Stop lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Basilakis/kai-sub013/internal/core/config"
	"github.com/Basilakis/kai-sub013/internal/core/status"
	"github.com/Basilakis/kai-sub013/internal/extraction/health"
	"github.com/Basilakis/kai-sub013/internal/extraction/recovery"
	"github.com/Basilakis/kai-sub013/internal/extraction/report"
	"github.com/Basilakis/kai-sub013/internal/extraction/retry"
	"github.com/Basilakis/kai-sub013/internal/infra/catalog"
	redisclient "github.com/Basilakis/kai-sub013/internal/infra/redis"
	"github.com/Basilakis/kai-sub013/internal/infra/storage"
	"github.com/Basilakis/kai-sub013/internal/infra/storage/file"
	"github.com/Basilakis/kai-sub013/internal/infra/storage/memory"
	"github.com/Basilakis/kai-sub013/internal/infra/storage/postgres"
	"github.com/Basilakis/kai-sub013/internal/infra/storage/sqlite"
)

// Deps carries the collaborators the ingestion pipeline supplies: the
// remediation actions the dispatcher invokes, and optionally a catalog sync
// override (tests, embedded deployments).
type Deps struct {
	Remediations recovery.Funcs
	CatalogSync  status.CatalogSync
}

// Service owns the recovery subsystem's lifecycle.
type Service struct {
	cfg          *config.AppConfig
	repo         storage.StatusRepository
	tracker      *status.Tracker
	reporter     *report.Reporter
	worker       *retry.Worker
	healthServer *health.Server
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// New wires the service from configuration.
func New(cfg *config.AppConfig, deps Deps) (*Service, error) {
	log := slog.Default()

	// 1. Status store backend
	repo, err := openRepository(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("Status store opened", "backend", cfg.Storage.Backend)

	// 2. Catalog sync chain: HTTP (or log sink) behind a dead-letter
	// decorator when Redis is configured.
	var redisClient *redisclient.Client
	var deadLetters *redisclient.DeadLetterQueue
	sync := deps.CatalogSync
	if sync == nil {
		if cfg.Catalog.URL != "" {
			sync = catalog.NewHTTPSync(cfg.Catalog.URL, cfg.Catalog.Timeout)
		} else {
			sync = catalog.NewLogSync(log)
			log.Info("No catalog URL configured, logging outcomes only")
		}
	}
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, dead-lettering disabled", "error", err)
		} else {
			deadLetters = redisclient.NewDeadLetterQueue(redisClient)
			sync = catalog.NewDeadLetter(sync, deadLetters, log)
		}
	}

	// 3. Tracker, dispatcher, worker
	tracker := status.NewTracker(repo, sync, log)
	dispatcher := recovery.NewDispatcher(
		deps.Remediations,
		cfg.Recovery.RemediationTimeout,
		log,
	)
	worker := retry.NewWorker(cfg.Retry, tracker, dispatcher, log)

	// 4. Ops surface
	var counter health.DeadLetterCounter
	if deadLetters != nil {
		counter = deadLetters
	}
	monitor := health.NewMonitor(tracker, worker, counter)
	healthServer := health.NewServer(monitor, cfg.Server.Port)

	return &Service{
		cfg:          cfg,
		repo:         repo,
		tracker:      tracker,
		reporter:     report.NewReporter(tracker, log),
		worker:       worker,
		healthServer: healthServer,
		redisClient:  redisClient,
		log:          log,
	}, nil
}

func openRepository(cfg *config.AppConfig) (storage.StatusRepository, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memory.NewStatusRepo(), nil
	case "file", "":
		return file.Open(cfg.Storage.File.Path)
	case "sqlite":
		return sqlite.Open(cfg.Storage.SQLite.Path)
	case "postgres":
		db, err := postgres.NewDB(context.Background(), cfg.Storage.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		return postgres.NewStatusRepo(db), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// Tracker exposes the status store to the embedding ingestion pipeline.
func (s *Service) Tracker() *status.Tracker { return s.tracker }

// Reporter exposes the pipeline-facing reporting facade.
func (s *Service) Reporter() *report.Reporter { return s.reporter }

// Start launches the health server and the retry worker.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	go func() {
		if err := s.worker.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("Retry worker failed", "error", err)
		}
	}()

	return nil
}

// Stop shuts the service down.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping recovery service...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if err := s.repo.Close(); err != nil {
		s.log.Warn("Failed to close status store", "error", err)
	}

	return s.healthServer.Stop(ctx)
}
