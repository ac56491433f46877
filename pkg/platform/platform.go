package platform

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-data-gateway/pkg/audit"
	"github.com/txn2/mcp-data-gateway/pkg/health"
	"github.com/txn2/mcp-data-gateway/pkg/registry"
)

// serverInstructions is served to MCP clients so agents know the gateway's
// guarantees before issuing queries.
const serverInstructions = "This server provides read-only access to configured databases. " +
	"Write statements and write pipeline stages are rejected before execution, sessions are " +
	"pinned read-only where the backend supports it, and results are capped at a configured " +
	"row limit. Use the schema and sample tools to explore structure before querying."

// Platform assembles the gateway: audit logger, toolkit registry, MCP
// server, and readiness state. Toolkits are created eagerly so a backend
// that cannot be reached fails startup instead of failing the first query.
type Platform struct {
	config   *Config
	auditor  *audit.Logger
	registry *registry.Registry
	server   *mcp.Server
	checker  *health.Checker
}

// New builds a platform from configuration. Every configured toolkit is
// instantiated, probed, and its tools registered before New returns.
func New(cfg *Config) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	auditor := audit.NewLogger(nil, cfg.Audit.QueryLoggingEnabled())

	reg := registry.NewRegistry()
	registry.RegisterBuiltinFactories(reg, auditor)

	checker := health.NewChecker()
	if err := createToolkits(reg, cfg, checker); err != nil {
		closeErr := reg.Close()
		return nil, errors.Join(err, closeErr)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, &mcp.ServerOptions{
		Instructions: serverInstructions,
	})
	reg.RegisterAllTools(server)

	auditor.Infof("gateway initialized with toolkits: %s", strings.Join(toolkitSummary(reg), ", "))

	return &Platform{
		config:   cfg,
		auditor:  auditor,
		registry: reg,
		server:   server,
		checker:  checker,
	}, nil
}

// createToolkits instantiates every configured toolkit in a stable order so
// startup failures are reproducible. Each backend is registered with the
// checker up front and marked ready once its toolkit's pool probe succeeds,
// so the readiness body names the backend still coming up.
func createToolkits(reg *registry.Registry, cfg *Config, checker *health.Checker) error {
	kinds := make([]string, 0, len(cfg.Toolkits))
	for kind := range cfg.Toolkits {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		checker.Register(kind)
	}

	for _, kind := range kinds {
		err := reg.CreateAndRegister(registry.ToolkitConfig{
			Kind:   kind,
			Name:   kind,
			Config: cfg.Toolkits[kind],
		})
		if err != nil {
			return fmt.Errorf("initializing %s toolkit: %w", kind, err)
		}
		checker.SetBackendReady(kind)
	}
	return nil
}

func toolkitSummary(reg *registry.Registry) []string {
	var parts []string
	for _, kit := range reg.All() {
		parts = append(parts, fmt.Sprintf("%s (%d tools)", kit.Kind(), len(kit.Tools())))
	}
	return parts
}

// MCPServer returns the assembled MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.server
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// ToolkitRegistry returns the toolkit registry.
func (p *Platform) ToolkitRegistry() *registry.Registry {
	return p.registry
}

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker {
	return p.checker
}

// Close drains and releases every toolkit.
func (p *Platform) Close() error {
	p.checker.SetDraining()
	return p.registry.Close()
}
