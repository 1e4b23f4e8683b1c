package store

import (
	"context"
	"fmt"

	"github.com/matzehuels/wcm/pkg/resolve"
)

// ManifestKey is the key of the manifest within [KeyValNamespace].
const ManifestKey = "manifest"

// ManifestStore persists the dependency manifest.
type ManifestStore struct {
	b Backend
}

// NewManifestStore creates a ManifestStore over b.
func NewManifestStore(b Backend) *ManifestStore {
	return &ManifestStore{b: b}
}

// Load returns the stored manifest. A missing manifest reports false.
func (s *ManifestStore) Load(ctx context.Context) (resolve.Manifest, bool, error) {
	data, ok, err := s.b.Get(ctx, KeyValNamespace, ManifestKey)
	if err != nil {
		return nil, false, fmt.Errorf("load manifest: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	m, err := resolve.ParseManifest(data)
	if err != nil {
		return nil, false, fmt.Errorf("load manifest: %w", err)
	}
	return m, true, nil
}

// Save validates and stores m, replacing the previous manifest.
func (s *ManifestStore) Save(ctx context.Context, m resolve.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := s.b.Set(ctx, KeyValNamespace, ManifestKey, data); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// Clear removes the stored manifest, which disables interception.
func (s *ManifestStore) Clear(ctx context.Context) error {
	if err := s.b.Delete(ctx, KeyValNamespace, ManifestKey); err != nil {
		return fmt.Errorf("clear manifest: %w", err)
	}
	return nil
}
