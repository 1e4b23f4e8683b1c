package resolve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
)

// Manifest maps dependency names (plain or "@scope/name") to versions.
type Manifest map[string]string

// ParseManifest decodes a flat JSON object of name/version pairs.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidManifest, err, "decode manifest")
	}
	if m == nil {
		m = Manifest{}
	}
	return m, nil
}

// LoadManifest reads and validates the manifest file at path.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, wcmerrors.Wrap(wcmerrors.ErrCodeManifestNotFound, err, "manifest %s", path)
	}
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Validate checks every name and version.
func (m Manifest) Validate() error {
	for _, name := range m.Names() {
		if err := wcmerrors.ValidateDependencyName(name); err != nil {
			return err
		}
		if err := wcmerrors.ValidateVersion(name, m[name]); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the dependency names in sorted order.
func (m Manifest) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

// IsDevelopment reports whether name is pinned to [Development].
func (m Manifest) IsDevelopment(name string) bool {
	return m[name] == Development
}

// Marshal encodes the manifest as indented JSON. Keys are sorted by
// encoding/json, so output is stable.
func (m Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string(m)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the manifest to path.
func (m Manifest) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Clone returns a shallow copy of m.
func (m Manifest) Clone() Manifest {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
