package photo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/minhvu/snapcal/internal/core/domain"
)

// ArtifactStore abstracts where captured photos physically live. The
// lifecycle manager is the only component that deletes through it.
type ArtifactStore interface {
	// Read returns the photo bytes for an attempt. Returns
	// domain.ErrArtifactMissing when the artifact no longer exists.
	Read(ctx context.Context, location string) ([]byte, error)

	// Delete removes the artifact. Deleting an already-missing artifact
	// is not an error.
	Delete(ctx context.Context, location string) error

	// Exists reports whether the artifact is still present.
	Exists(ctx context.Context, location string) (bool, error)
}

// FSStore stores captured photos on the local filesystem.
type FSStore struct{}

// NewFSStore creates a filesystem-backed artifact store.
func NewFSStore() *FSStore {
	return &FSStore{}
}

func (s *FSStore) Read(ctx context.Context, location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrArtifactMissing
	}
	if errors.Is(err, fs.ErrPermission) {
		return nil, &domain.PermissionError{Resource: "photo storage"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

func (s *FSStore) Delete(ctx context.Context, location string) error {
	err := os.Remove(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

func (s *FSStore) Exists(ctx context.Context, location string) (bool, error) {
	_, err := os.Stat(location)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return true, nil
}
