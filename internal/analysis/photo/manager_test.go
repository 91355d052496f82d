package photo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minhvu/snapcal/internal/core/domain"
)

func writeTestPhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meal.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestManager_RetainPresentArtifact(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewFSStore())
	path := writeTestPhoto(t)

	if err := m.Retain(ctx, "a1", path); err != nil {
		t.Fatalf("Retain failed: %v", err)
	}

	// Ownership transfer must not consume the artifact.
	if exists, _ := m.Exists(ctx, path); !exists {
		t.Error("artifact must survive retention")
	}
}

func TestManager_RetainMissingArtifact(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewFSStore())

	err := m.Retain(ctx, "a1", filepath.Join(t.TempDir(), "gone.jpg"))
	if !errors.Is(err, domain.ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestManager_OpenAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewFSStore())
	path := writeTestPhoto(t)

	data, err := m.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("unexpected content: %q", data)
	}

	if err := m.DeleteOnTerminalSuccess(ctx, "a1", path); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if exists, _ := m.Exists(ctx, path); exists {
		t.Error("artifact should be gone after terminal success")
	}
}

func TestManager_OpenMissing(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewFSStore())

	_, err := m.Open(ctx, filepath.Join(t.TempDir(), "gone.jpg"))
	if !errors.Is(err, domain.ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestManager_DeleteMissingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewFSStore())
	path := writeTestPhoto(t)

	if err := m.DeleteOnNonRetryableFailure(ctx, "a1", path); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	// Re-entry after process death can repeat the terminal decision.
	if err := m.DeleteOnNonRetryableFailure(ctx, "a1", path); err != nil {
		t.Errorf("repeated delete should be a no-op, got %v", err)
	}
}

func TestManager_KeepForManualRetryLeavesArtifact(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewFSStore())
	path := writeTestPhoto(t)

	m.KeepForManualRetry(ctx, "a1", path)

	exists, err := m.Exists(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("artifact must survive retry exhaustion")
	}
}
