package photo

import (
	"context"
	"log/slog"

	"github.com/minhvu/snapcal/internal/core/domain"
)

// Manager owns the lifetime of captured photos. The orchestrator calls
// exactly one of the terminal operations per job, exactly once; the artifact
// must survive every non-terminal transition.
type Manager struct {
	store ArtifactStore
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(store ArtifactStore) *Manager {
	return &Manager{store: store}
}

// Retain takes ownership of the artifact for the duration of the job.
// Storage backends keep artifacts until explicitly deleted, so the handoff
// only verifies the artifact is actually there to own.
func (m *Manager) Retain(ctx context.Context, artifactID, location string) error {
	exists, err := m.Exists(ctx, location)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrArtifactMissing
	}
	slog.Debug("Artifact retained for analysis", "artifact", artifactID)
	return nil
}

// Open reads the photo bytes for one attempt. A missing artifact surfaces
// as domain.ErrArtifactMissing and ends the job non-retryably.
func (m *Manager) Open(ctx context.Context, location string) ([]byte, error) {
	return m.store.Read(ctx, location)
}

// Exists reports whether the artifact is still present.
func (m *Manager) Exists(ctx context.Context, location string) (bool, error) {
	return m.store.Exists(ctx, location)
}

// DeleteOnTerminalSuccess removes the artifact after its estimate has been
// persisted.
func (m *Manager) DeleteOnTerminalSuccess(ctx context.Context, artifactID, location string) error {
	slog.Info("Deleting artifact after successful analysis", "artifact", artifactID)
	return m.store.Delete(ctx, location)
}

// DeleteOnNonRetryableFailure removes the artifact for a failure no retry
// can fix.
func (m *Manager) DeleteOnNonRetryableFailure(ctx context.Context, artifactID, location string) error {
	slog.Info("Deleting artifact after non-retryable failure", "artifact", artifactID)
	return m.store.Delete(ctx, location)
}

// KeepForManualRetry leaves the artifact in place at the exhaustion
// boundary so a manual retry can reuse it. Deliberately a no-op.
func (m *Manager) KeepForManualRetry(ctx context.Context, artifactID, location string) {
	slog.Info("Keeping artifact for manual retry", "artifact", artifactID)
}
