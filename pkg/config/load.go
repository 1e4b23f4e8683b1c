package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
)

// Search places, tried in order in each directory.
const (
	PackageFile = "package.json"
	RCFile      = ".wcmrc"
	TOMLFile    = ".wcmrc.toml"

	packageKey = "wcm"
)

var namespaces = []string{"browser", "bundle", "migration", "proxy", "store", "install"}

// Load searches dir and its parents for a configuration file and returns
// the merged configuration along with warnings for unknown keys.
func Load(dir string) (*Config, []string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidPath, err, "config dir %s", dir)
	}
	for d := abs; ; {
		cfg, warnings, ok, err := loadDir(d)
		if err != nil || ok {
			return cfg, warnings, err
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	cfg := Default()
	cfg.Dir = abs
	return cfg, nil, nil
}

// LoadFile loads one configuration file regardless of its location.
func LoadFile(path string) (*Config, []string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidPath, err, "config file %s", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, wcmerrors.Wrap(wcmerrors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	cfg := Default()
	cfg.Dir, cfg.File = filepath.Dir(abs), abs

	var warnings []string
	switch filepath.Base(abs) {
	case PackageFile:
		var ok bool
		warnings, ok, err = decodePackage(data, cfg)
		if err == nil && !ok {
			err = wcmerrors.New(wcmerrors.ErrCodeInvalidConfig, "%s has no %q key", abs, packageKey)
		}
	default:
		warnings, err = decodeRC(data, cfg)
	}
	if err != nil {
		return nil, nil, wrapParse(err, abs)
	}
	return cfg, warnings, nil
}

func loadDir(dir string) (*Config, []string, bool, error) {
	for _, name := range []string{PackageFile, RCFile, TOMLFile} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, nil, false, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidConfig, err, "read %s", path)
		}

		cfg := Default()
		cfg.Dir, cfg.File = dir, path
		var warnings []string
		ok := true
		if name == PackageFile {
			warnings, ok, err = decodePackage(data, cfg)
		} else {
			warnings, err = decodeRC(data, cfg)
		}
		if err != nil {
			return nil, nil, false, wrapParse(err, path)
		}
		if ok {
			return cfg, warnings, true, nil
		}
	}
	return nil, nil, false, nil
}

func wrapParse(err error, path string) error {
	if wcmerrors.GetCode(err) != "" {
		return err
	}
	return wcmerrors.Wrap(wcmerrors.ErrCodeInvalidConfig, err, "parse %s", path)
}

// decodePackage applies the "wcm" key of a package.json. It reports false
// when the key is absent.
func decodePackage(data []byte, cfg *Config) ([]string, bool, error) {
	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, false, err
	}
	raw, ok := pkg[packageKey]
	if !ok {
		return nil, false, nil
	}
	warnings, err := decodeJSON(raw, cfg)
	return warnings, true, err
}

func decodeRC(data []byte, cfg *Config) ([]string, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return decodeJSON(trimmed, cfg)
	}
	return decodeTOML(data, cfg)
}

func decodeJSON(data []byte, cfg *Config) ([]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var warnings []string
	for _, ns := range sortedKeys(raw) {
		target := cfg.namespace(ns)
		if target == nil {
			warnings = append(warnings, unknownNamespace(ns))
			continue
		}
		if err := json.Unmarshal(raw[ns], target); err != nil {
			return warnings, wcmerrors.Wrap(wcmerrors.ErrCodeInvalidConfig, err, "namespace %s", ns)
		}
	}
	return warnings, nil
}

func decodeTOML(data []byte, cfg *Config) ([]string, error) {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, err
	}
	var warnings []string
	reported := map[string]bool{}
	for _, key := range md.Undecoded() {
		ns := key[0]
		if !slices.Contains(namespaces, ns) {
			if !reported[ns] {
				reported[ns] = true
				warnings = append(warnings, unknownNamespace(ns))
			}
			continue
		}
		warnings = append(warnings, "unknown configuration key \""+strings.Join(key, ".")+"\"")
	}
	return warnings, nil
}

func unknownNamespace(ns string) string {
	return "unknown configuration key \"" + ns + "\""
}

func (c *Config) namespace(ns string) any {
	switch ns {
	case "browser":
		return &c.Browser
	case "bundle":
		return &c.Bundle
	case "migration":
		return &c.Migration
	case "proxy":
		return &c.Proxy
	case "store":
		return &c.Store
	case "install":
		return &c.Install
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
