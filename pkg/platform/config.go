// Package platform provides gateway orchestration: configuration loading,
// toolkit construction, and MCP server assembly.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the complete gateway configuration.
type Config struct {
	Server   ServerConfig              `yaml:"server"`
	Audit    AuditConfig               `yaml:"audit"`
	Toolkits map[string]map[string]any `yaml:"toolkits"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"` // "stdio", "http"
	Address   string `yaml:"address"`
}

// AuditConfig configures query audit logging.
type AuditConfig struct {
	QueryLogging *bool `yaml:"query_logging"`
}

// QueryLoggingEnabled reports whether informational query events are
// emitted. Unset defaults to enabled; error events are always emitted.
func (a AuditConfig) QueryLoggingEnabled() bool {
	return a.QueryLogging == nil || *a.QueryLogging
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFromEnv builds a single-backend configuration from environment
// variables, for deployments that run one gateway per database without a
// config file. GATEWAY_BACKEND selects the toolkit kind.
func ConfigFromEnv() (*Config, error) {
	kind := os.Getenv("GATEWAY_BACKEND")
	if kind == "" {
		return nil, fmt.Errorf("GATEWAY_BACKEND is required when no config file is given")
	}

	toolkitCfg := map[string]any{
		"host":     os.Getenv("DB_HOST"),
		"user":     os.Getenv("DB_USER"),
		"password": os.Getenv("DB_PASSWORD"),
		"database": os.Getenv("DB_NAME"),
	}
	for env, key := range map[string]string{
		"DB_PORT":      "port",
		"DB_POOL_SIZE": "pool_max",
		"MAX_ROWS":     "max_rows",
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", env, v, err)
		}
		toolkitCfg[key] = n
	}
	// Accepts either a bare number of seconds or a Go duration string.
	if v := os.Getenv("MAX_QUERY_TIME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			toolkitCfg["max_query_time"] = n
		} else {
			toolkitCfg["max_query_time"] = v
		}
	}

	cfg := &Config{
		Toolkits: map[string]map[string]any{
			kind: toolkitCfg,
		},
	}
	if v := os.Getenv("ENABLE_QUERY_LOGGING"); v != "" {
		enabled := strings.EqualFold(v, "true") || v == "1"
		cfg.Audit.QueryLogging = &enabled
	}

	applyDefaults(cfg)
	return cfg, cfg.Validate()
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "mcp-data-gateway"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Toolkits) == 0 {
		errs = append(errs, "at least one toolkit must be configured")
	}
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		errs = append(errs, fmt.Sprintf("unknown transport %q", c.Server.Transport))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
