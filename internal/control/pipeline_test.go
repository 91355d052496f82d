package control

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minhvu/snapcal/internal/core/config"
	"github.com/minhvu/snapcal/internal/core/domain"
)

func TestPipeline_Lifecycle(t *testing.T) {
	// Memory-backed config: no database, no redis, local photos
	cfg := &config.AppConfig{}
	cfg.Server.Port = 0 // Random port
	cfg.Photos.Backend = "fs"
	cfg.Scheduler.PollInterval = 50 * time.Millisecond
	cfg.Scheduler.LockTTL = time.Minute
	cfg.Scheduler.BatchSize = 10
	cfg.Connectivity.Interval = time.Hour // keep the probe quiet

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	p, err := NewPipeline(ctx, cfg)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	if p == nil {
		t.Fatal("Pipeline is nil")
	}

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A job can be enqueued while running; the artifact is retained on handoff
	path := filepath.Join(t.TempDir(), "meal.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	id, err := p.Enqueue(ctx, domain.CapturedArtifact{
		ID:       "artifact-1",
		Location: path,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if id == "" {
		t.Error("expected a job id")
	}

	// Handoff of a photo that no longer exists is rejected up front
	if _, err := p.Enqueue(ctx, domain.CapturedArtifact{
		ID:       "artifact-2",
		Location: filepath.Join(t.TempDir(), "gone.jpg"),
	}); !errors.Is(err, domain.ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}

	// Wait a bit to let goroutines spin up
	time.Sleep(100 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestPipeline_UnknownPhotoBackend(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Photos.Backend = "tape"

	if _, err := NewPipeline(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown photo backend")
	}
}
