package config

import (
	"fmt"
	"reflect"
	"strings"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
)

// Setting is one flattened configuration value.
type Setting struct {
	Key   string
	Value string
}

const redacted = "********"

// List flattens the configuration into "namespace.key" settings, in
// namespace order and field order. Secrets are redacted.
func (c *Config) List() []Setting {
	var out []Setting
	for _, ns := range namespaces {
		v := reflect.ValueOf(c.namespace(ns)).Elem()
		t := v.Type()
		for i := range t.NumField() {
			tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
			if tag == "" || tag == "-" {
				continue
			}
			out = append(out, Setting{Key: ns + "." + tag, Value: format(tag, v.Field(i))})
		}
	}
	return out
}

// Get returns the setting named by key ("namespace.key").
func (c *Config) Get(key string) (string, error) {
	for _, s := range c.List() {
		if s.Key == key {
			return s.Value, nil
		}
	}
	if c.namespace(key) != nil {
		return "", wcmerrors.New(wcmerrors.ErrCodeInvalidInput, "%q is a namespace, use namespace.key", key)
	}
	return "", wcmerrors.New(wcmerrors.ErrCodeNotFound, "unknown configuration key %q", key)
}

func format(tag string, v reflect.Value) string {
	if strings.Contains(strings.ToLower(tag), "password") && !v.IsZero() {
		return redacted
	}
	if v.Kind() != reflect.Map {
		return fmt.Sprint(v.Interface())
	}
	m, ok := v.Interface().(map[string][]string)
	if !ok {
		return fmt.Sprint(v.Interface())
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, k+"="+strings.Join(m[k], ","))
	}
	return strings.Join(parts, " ")
}
