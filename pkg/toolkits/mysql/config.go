package mysql

import (
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/txn2/mcp-data-gateway/pkg/pool"
	"github.com/txn2/mcp-data-gateway/pkg/query"
	"github.com/txn2/mcp-data-gateway/pkg/toolkit"
)

const (
	defaultPort         = 3306
	defaultPoolMin      = 1
	defaultPoolMax      = 5
	defaultMaxQueryTime = 30 * time.Second
	defaultMaxRows      = 10000
	defaultRowLimit     = 100
)

// Config holds MySQL toolkit configuration.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"database"`
	PoolMin      int           `yaml:"pool_min"`
	PoolMax      int           `yaml:"pool_max"`
	PoolPolicy   pool.Policy   `yaml:"pool_policy"`
	MaxQueryTime time.Duration `yaml:"max_query_time"`
	MaxRows      int           `yaml:"max_rows"`
	DefaultLimit int           `yaml:"default_limit"`
}

// ParseConfig parses a MySQL toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	c := Config{
		Host:         toolkit.GetString(cfg, "host"),
		Port:         toolkit.GetInt(cfg, "port", defaultPort),
		User:         toolkit.GetString(cfg, "user"),
		Password:     toolkit.GetString(cfg, "password"),
		Database:     toolkit.GetString(cfg, "database"),
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
		return fmt.Errorf("mysql host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("mysql database is required")
	}
	if c.PoolPolicy != pool.PolicyBlock && c.PoolPolicy != pool.PolicyFail {
		return fmt.Errorf("unknown pool_policy %q", c.PoolPolicy)
	}
	return nil
}

// DSN builds a driver DSN. ParseTime makes temporal columns scan as
// time.Time so the serializer can canonicalize them. Absent credentials fall
// back to an unauthenticated connection attempt.
func (c Config) DSN() string {
	dc := gomysql.NewConfig()
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dc.User = c.User
	dc.Passwd = c.Password
	dc.DBName = c.Database
	dc.ParseTime = true
	return dc.FormatDSN()
}

// Limits returns the execution bounds for this backend.
func (c Config) Limits() query.Limits {
	return query.Limits{
		DefaultLimit: c.DefaultLimit,
		MaxRows:      c.MaxRows,
		MaxQueryTime: c.MaxQueryTime,
	}
}
