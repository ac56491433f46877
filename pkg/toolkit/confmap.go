// Package toolkit provides shared helpers for toolkit implementations:
// config-map extraction and MCP tool results. It deliberately sits below
// pkg/registry (which imports the toolkit implementations) so the
// implementations can share plumbing without an import cycle.
package toolkit

import (
	"fmt"
	"time"
)

// GetString extracts a string value from a config map.
func GetString(cfg map[string]any, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

// GetStringDefault extracts a string value from a config map with a default.
func GetStringDefault(cfg map[string]any, key, defaultVal string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return defaultVal
}

// GetInt extracts an int value from a config map with a default.
func GetInt(cfg map[string]any, key string, defaultVal int) int {
	if v, ok := cfg[key].(int); ok {
		return v
	}
	if v, ok := cfg[key].(float64); ok {
		return int(v)
	}
	return defaultVal
}

// GetBool extracts a bool value from a config map with a default.
func GetBool(cfg map[string]any, key string, defaultVal bool) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return defaultVal
}

// GetDuration extracts a duration value from a config map. Strings are
// parsed with time.ParseDuration; bare numbers are taken as seconds.
func GetDuration(cfg map[string]any, key string) (time.Duration, error) {
	if v, ok := cfg[key].(string); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parsing duration %q: %w", v, err)
		}
		return d, nil
	}
	if v, ok := cfg[key].(int); ok {
		return time.Duration(v) * time.Second, nil
	}
	if v, ok := cfg[key].(float64); ok {
		return time.Duration(v) * time.Second, nil
	}
	return 0, nil
}
