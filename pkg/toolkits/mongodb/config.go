package mongodb

import (
	"fmt"
	"net/url"
	"time"

	"github.com/txn2/mcp-data-gateway/pkg/pool"
	"github.com/txn2/mcp-data-gateway/pkg/query"
	"github.com/txn2/mcp-data-gateway/pkg/toolkit"
)

const (
	defaultPort         = 27017
	defaultAuthSource   = "admin"
	defaultPoolMin      = 1
	defaultPoolMax      = 5
	defaultMaxQueryTime = 30 * time.Second
	defaultMaxRows      = 10000
	defaultRowLimit     = 100
	defaultSampleSize   = 100
	maxSampleSize       = 1000
)

// Config holds MongoDB toolkit configuration.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"database"`
	AuthSource   string        `yaml:"auth_source"`
	PoolMin      int           `yaml:"pool_min"`
	PoolMax      int           `yaml:"pool_max"`
	PoolPolicy   pool.Policy   `yaml:"pool_policy"`
	MaxQueryTime time.Duration `yaml:"max_query_time"`
	MaxRows      int           `yaml:"max_rows"`
	DefaultLimit int           `yaml:"default_limit"`
	SampleSize   int           `yaml:"sample_size"`
}

// ParseConfig parses a MongoDB toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		Host:         toolkit.GetString(cfg, "host"),
		Port:         toolkit.GetInt(cfg, "port", defaultPort),
		User:         toolkit.GetString(cfg, "user"),
		Password:     toolkit.GetString(cfg, "password"),
		Database:     toolkit.GetString(cfg, "database"),
		AuthSource:   toolkit.GetStringDefault(cfg, "auth_source", defaultAuthSource),
		PoolMin:      toolkit.GetInt(cfg, "pool_min", defaultPoolMin),
		PoolMax:      toolkit.GetInt(cfg, "pool_max", defaultPoolMax),
		PoolPolicy:   pool.Policy(toolkit.GetStringDefault(cfg, "pool_policy", string(pool.PolicyBlock))),
		MaxRows:      toolkit.GetInt(cfg, "max_rows", defaultMaxRows),
		DefaultLimit: toolkit.GetInt(cfg, "default_limit", defaultRowLimit),
		SampleSize:   toolkit.GetInt(cfg, "sample_size", defaultSampleSize),
	}

	maxQueryTime, err := toolkit.GetDuration(cfg, "max_query_time")
	if err != nil {
		return c, fmt.Errorf("invalid max_query_time: %w", err)
	}
	c.MaxQueryTime = maxQueryTime
	if c.MaxQueryTime == 0 {
		c.MaxQueryTime = defaultMaxQueryTime
	}
	if c.SampleSize > maxSampleSize {
		c.SampleSize = maxSampleSize
	}

	return c, validateConfig(c)
}

func validateConfig(c Config) error {
	if c.Host == "" {
		return fmt.Errorf("mongodb host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("mongodb database is required")
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive")
	}
	if c.PoolPolicy != pool.PolicyBlock && c.PoolPolicy != pool.PolicyFail {
		return fmt.Errorf("unknown pool_policy %q", c.PoolPolicy)
	}
	return nil
}

// URI builds a mongodb:// connection string. Absent credentials produce an
// unauthenticated URI.
func (c Config) URI() string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
		u.RawQuery = url.Values{"authSource": {c.AuthSource}}.Encode()
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
