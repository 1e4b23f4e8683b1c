package errors

import (
	"strings"
	"unicode"
)

// ValidateDependencyName validates a manifest dependency name.
//
// Names are either plain ("polymer") or scoped ("@org/polymer"). They end up
// as path segments under the intercept destination, so anything that could
// escape that directory is rejected:
//   - No empty names
//   - No control characters
//   - No ".." segments, backslashes or absolute paths
//   - Scoped names must have exactly one "/" with non-empty scope and name
//   - Maximum length of 214 characters (npm limit)
func ValidateDependencyName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidManifest, "dependency name cannot be empty")
	}
	if len(name) > 214 {
		return New(ErrCodeInvalidManifest, "dependency name too long (max 214 characters): %q", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidManifest, "dependency name contains invalid characters: %q", name)
		}
	}
	if strings.Contains(name, "\\") {
		return New(ErrCodeInvalidManifest, "dependency name contains a backslash: %q", name)
	}

	parts := strings.Split(name, "/")
	if strings.HasPrefix(name, "@") {
		if len(parts) != 2 || len(parts[0]) < 2 || parts[1] == "" {
			return New(ErrCodeInvalidManifest, "scoped dependency name must look like @scope/name: %q", name)
		}
	} else if len(parts) != 1 {
		return New(ErrCodeInvalidManifest, "unscoped dependency name cannot contain '/': %q", name)
	}
	for _, p := range parts {
		if p == "." || p == ".." {
			return New(ErrCodeInvalidManifest, "dependency name contains a relative segment: %q", name)
		}
	}
	return nil
}

// ValidateVersion validates a manifest version string.
// Any non-empty string without path separators is accepted; the sentinel
// "development" is a valid version.
func ValidateVersion(name, version string) error {
	if strings.TrimSpace(version) == "" {
		return New(ErrCodeInvalidManifest, "empty version for %q", name)
	}
	if strings.ContainsAny(version, "/\\") || version == ".." || version == "." {
		return New(ErrCodeInvalidManifest, "version for %q contains path characters: %q", name, version)
	}
	return nil
}
