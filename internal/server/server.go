// Package server provides a factory for assembling the gateway platform.
package server

import (
	"github.com/txn2/mcp-data-gateway/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

// NewWithConfig creates a platform from a YAML configuration file.
func NewWithConfig(path string) (*platform.Platform, error) {
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return newPlatform(cfg)
}

// NewFromEnv creates a single-backend platform from environment variables.
func NewFromEnv() (*platform.Platform, error) {
	cfg, err := platform.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return newPlatform(cfg)
}

func newPlatform(cfg *platform.Config) (*platform.Platform, error) {
	if cfg.Server.Version == "" {
		cfg.Server.Version = Version
	}
	return platform.New(cfg)
}
