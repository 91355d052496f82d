package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/minhvu/snapcal/internal/infra/storage"
)

// Pruner deletes old failure audit rows based on retention policy.
type Pruner struct {
	retention time.Duration
	failed    storage.FailedJobRepository
}

// NewPruner creates a new Pruner worker. A zero retention disables it.
func NewPruner(retention time.Duration, failed storage.FailedJobRepository) *Pruner {
	return &Pruner{
		retention: retention,
		failed:    failed,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Calculate check interval (e.g., 10% of retention period, but max 1 hour)
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	removed, err := p.failed.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune audit rows", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("Pruned audit rows", "removed", removed, "cutoff", cutoff)
	}
}
