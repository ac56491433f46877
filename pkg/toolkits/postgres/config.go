package postgres

import (
	"fmt"
	"net/url"
	"time"

	"github.com/txn2/mcp-data-gateway/pkg/pool"
	"github.com/txn2/mcp-data-gateway/pkg/query"
	"github.com/txn2/mcp-data-gateway/pkg/toolkit"
)

const (
	defaultPort         = 5432
	defaultSchema       = "public"
	defaultPoolMin      = 1
	defaultPoolMax      = 5
	defaultMaxQueryTime = 30 * time.Second
	defaultMaxRows      = 10000
	defaultRowLimit     = 100
)

// Config holds PostgreSQL toolkit configuration.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"database"`
	Schema       string        `yaml:"schema"`
	SSLMode      string        `yaml:"ssl_mode"`
	PoolMin      int           `yaml:"pool_min"`
	PoolMax      int           `yaml:"pool_max"`
	PoolPolicy   pool.Policy   `yaml:"pool_policy"`
	MaxQueryTime time.Duration `yaml:"max_query_time"`
	MaxRows      int           `yaml:"max_rows"`
	DefaultLimit int           `yaml:"default_limit"`
}

// ParseConfig parses a PostgreSQL toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		Host:         toolkit.GetString(cfg, "host"),
		Port:         toolkit.GetInt(cfg, "port", defaultPort),
		User:         toolkit.GetString(cfg, "user"),
		Password:     toolkit.GetString(cfg, "password"),
		Database:     toolkit.GetString(cfg, "database"),
		Schema:       toolkit.GetStringDefault(cfg, "schema", defaultSchema),
		SSLMode:      toolkit.GetStringDefault(cfg, "ssl_mode", "prefer"),
		PoolMin:      toolkit.GetInt(cfg, "pool_min", defaultPoolMin),
		PoolMax:      toolkit.GetInt(cfg, "pool_max", defaultPoolMax),
		PoolPolicy:   pool.Policy(toolkit.GetStringDefault(cfg, "pool_policy", string(pool.PolicyBlock))),
		MaxRows:      toolkit.GetInt(cfg, "max_rows", defaultMaxRows),
		DefaultLimit: toolkit.GetInt(cfg, "default_limit", defaultRowLimit),
	}

	maxQueryTime, err := toolkit.GetDuration(cfg, "max_query_time")
	if err != nil {
		return c, fmt.Errorf("invalid max_query_time: %w", err)
	}
	c.MaxQueryTime = maxQueryTime
	if c.MaxQueryTime == 0 {
		c.MaxQueryTime = defaultMaxQueryTime
	}

	return c, validateConfig(c)
}

func validateConfig(c Config) error {
	if c.Host == "" {
		return fmt.Errorf("postgres host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("postgres database is required")
	}
	if c.PoolPolicy != pool.PolicyBlock && c.PoolPolicy != pool.PolicyFail {
		return fmt.Errorf("unknown pool_policy %q", c.PoolPolicy)
	}
	return nil
}

// DSN builds a connection URL. Absent credentials fall back to an
// unauthenticated connection attempt.
func (c Config) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	return u.String()
}

// Limits returns the execution bounds for this backend.
func (c Config) Limits() query.Limits {
	return query.Limits{
		DefaultLimit: c.DefaultLimit,
		MaxRows:      c.MaxRows,
		MaxQueryTime: c.MaxQueryTime,
	}
}
