package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/minhvu/snapcal/internal/control"
	"github.com/minhvu/snapcal/internal/core/config"
)

func TestGracefulShutdown(t *testing.T) {
	// Memory-backed config with no real work to do but enough to start components
	cfg := &config.AppConfig{}
	cfg.Server.Port = 0
	cfg.Photos.Backend = "fs"
	cfg.Scheduler.PollInterval = 100 * time.Millisecond
	cfg.Scheduler.LockTTL = time.Minute
	cfg.Scheduler.BatchSize = 10
	cfg.Connectivity.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())

	pipeline, err := control.NewPipeline(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	if err := pipeline.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let it run for a bit
	time.Sleep(500 * time.Millisecond)

	// Trigger shutdown
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := pipeline.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
