package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minhvu/snapcal/internal/analysis/connectivity"
	"github.com/minhvu/snapcal/internal/analysis/health"
	"github.com/minhvu/snapcal/internal/analysis/notify"
	"github.com/minhvu/snapcal/internal/analysis/orchestrator"
	"github.com/minhvu/snapcal/internal/analysis/photo"
	"github.com/minhvu/snapcal/internal/core/config"
	"github.com/minhvu/snapcal/internal/core/domain"
	"github.com/minhvu/snapcal/internal/core/worker"
	redisclient "github.com/minhvu/snapcal/internal/infra/redis"
	"github.com/minhvu/snapcal/internal/infra/scheduler"
	"github.com/minhvu/snapcal/internal/infra/storage"
	"github.com/minhvu/snapcal/internal/infra/storage/memory"
	"github.com/minhvu/snapcal/internal/infra/storage/postgres"
	"github.com/minhvu/snapcal/internal/infra/vision"
)

// Pipeline is the main application struct that manages the analysis lifecycle.
type Pipeline struct {
	cfg          *config.AppConfig
	scheduler    *scheduler.Scheduler
	monitor      *connectivity.Monitor
	photos       *photo.Manager
	pruner       *worker.Pruner
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewPipeline creates a Pipeline with all dependencies initialized.
func NewPipeline(ctx context.Context, cfg *config.AppConfig) (*Pipeline, error) {

	// 1. Initialize Storage
	var estimateRepo storage.EstimateRepository
	var failedRepo storage.FailedJobRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Assuming migrations are in "migrations" folder relative to CWD
		if err := db.Migrate("migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		estimateRepo = postgres.NewEstimateRepo(db)
		failedRepo = postgres.NewFailedJobRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewStorage()
		estimateRepo = memory.NewEstimateRepo(store)
		failedRepo = memory.NewFailedJobRepo(store)
		slog.Info("Using Memory storage")
	}

	// 2. Initialize the durable queue and the notification channel
	var redisClient *redisclient.Client
	var queue scheduler.Store
	var channel notify.Channel

	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		queue = redisClient
		channel = redisclient.NewNotificationChannel(redisClient)
		slog.Info("Using Redis queue")
	} else {
		queue = scheduler.NewMemoryStore()
		channel = notify.NewLogChannel()
		slog.Info("Using in-process queue")
	}

	// 3. Initialize the photo store
	photos, err := newPhotoManager(ctx, cfg.Photos)
	if err != nil {
		return nil, err
	}

	// 4. Initialize the analysis service and the connectivity monitor
	visionClient := vision.NewClient(cfg.Vision)
	monitor := connectivity.NewMonitor(cfg.Connectivity)
	presenter := notify.NewPresenter(channel)
	auditor := storage.NewFailureAuditor(failedRepo)

	// 5. Wire the attempt state machine into the scheduler
	orch := orchestrator.New(monitor, visionClient, estimateRepo, photos, presenter, auditor)
	sched := scheduler.New(queue, orch, cfg.Scheduler)

	// 6. Initialize Health Monitor
	checkers := make(map[string]health.Checker)
	if db != nil {
		checkers["database"] = db
	}
	if redisClient != nil {
		checkers["redis"] = redisClient
	}
	healthMon := health.NewMonitor(checkers, monitor, queue.QueueDepth)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &Pipeline{
		cfg:          cfg,
		scheduler:    sched,
		monitor:      monitor,
		photos:       photos,
		pruner:       worker.NewPruner(cfg.Audit.Retention, failedRepo),
		healthServer: healthServer,
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}, nil
}

// Start starts the pipeline and all its components.
func (p *Pipeline) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := p.healthServer.Start(); err != nil {
			p.log.Error("Health server failed", "error", err)
		}
	}()

	// Start Connectivity Monitor
	go p.monitor.Start(ctx)

	// Start DB Metrics Collector
	if p.db != nil {
		p.db.StartMetricsCollector(ctx)
	}

	// Start Audit Pruner
	go p.pruner.Start(ctx)

	// Start the attempt release loop
	p.log.Info("Starting scheduler")
	go p.scheduler.Run(ctx)

	return nil
}

// Stop stops the pipeline.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.log.Info("Stopping pipeline...")

	if p.redisClient != nil {
		if err := p.redisClient.Close(); err != nil {
			p.log.Warn("Failed to close Redis", "error", err)
		}
	}

	return p.healthServer.Stop(ctx)
}

// Enqueue submits a captured photo for analysis. Ownership of the artifact
// transfers to the photo lifecycle manager here.
func (p *Pipeline) Enqueue(ctx context.Context, artifact domain.CapturedArtifact) (string, error) {
	if err := p.photos.Retain(ctx, artifact.ID, artifact.Location); err != nil {
		return "", fmt.Errorf("failed to retain artifact: %w", err)
	}
	return p.scheduler.Enqueue(ctx, artifact)
}

// Retry restarts an exhausted job from attempt zero.
func (p *Pipeline) Retry(ctx context.Context, jobID string) error {
	return p.scheduler.Retry(ctx, jobID)
}

func newPhotoManager(ctx context.Context, cfg config.PhotoConfig) (*photo.Manager, error) {
	switch cfg.Backend {
	case "minio":
		store, err := photo.NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("failed to init minio store: %w", err)
		}
		return photo.NewManager(store), nil
	case "", "fs":
		return photo.NewManager(photo.NewFSStore()), nil
	default:
		return nil, fmt.Errorf("unknown photo backend: %s", cfg.Backend)
	}
}
