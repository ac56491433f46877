package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Registry manages toolkit registration and lifecycle. The gateway process
// owns every registered toolkit, and through it every pool and session,
// exclusively.
type Registry struct {
	mu sync.RWMutex

	// Registered toolkits by kind+name
	toolkits map[string]Toolkit

	// Factory functions by kind
	factories map[string]ToolkitFactory
}

// NewRegistry creates a new toolkit registry.
func NewRegistry() *Registry {
	return &Registry{
		toolkits:  make(map[string]Toolkit),
		factories: make(map[string]ToolkitFactory),
	}
}

// RegisterFactory registers a toolkit factory for a kind.
func (r *Registry) RegisterFactory(kind string, factory ToolkitFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Register adds a toolkit to the registry.
func (r *Registry) Register(toolkit Toolkit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := toolkitKey(toolkit.Kind(), toolkit.Name())
	if _, exists := r.toolkits[key]; exists {
		return fmt.Errorf("toolkit %s already registered", key)
	}

	r.toolkits[key] = toolkit
	return nil
}

// CreateAndRegister creates a toolkit from config and registers it. Factory
// errors include backend probe failures, which the caller treats as fatal.
func (r *Registry) CreateAndRegister(cfg ToolkitConfig) error {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown toolkit kind: %s", cfg.Kind)
	}

	toolkit, err := factory(cfg.Name, cfg.Config)
	if err != nil {
		return fmt.Errorf("creating toolkit %s/%s: %w", cfg.Kind, cfg.Name, err)
	}

	return r.Register(toolkit)
}

// Get retrieves a toolkit by kind and name.
func (r *Registry) Get(kind, name string) (Toolkit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	toolkit, ok := r.toolkits[toolkitKey(kind, name)]
	return toolkit, ok
}

// All returns every registered toolkit in a stable order.
func (r *Registry) All() []Toolkit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.toolkits))
	for key := range r.toolkits {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Toolkit, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.toolkits[key])
	}
	return result
}

// ToolNames returns the names of every tool across registered toolkits.
func (r *Registry) ToolNames() []string {
	var names []string
	for _, toolkit := range r.All() {
		names = append(names, toolkit.Tools()...)
	}
	sort.Strings(names)
	return names
}

// RegisterAllTools registers every toolkit's tools with the MCP server.
func (r *Registry) RegisterAllTools(s *mcp.Server) {
	for _, toolkit := range r.All() {
		toolkit.RegisterTools(s)
	}
}

// Close closes every registered toolkit and returns the joined errors.
func (r *Registry) Close() error {
	r.mu.Lock()
	toolkits := make([]Toolkit, 0, len(r.toolkits))
	for _, toolkit := range r.toolkits {
		toolkits = append(toolkits, toolkit)
	}
	r.toolkits = make(map[string]Toolkit)
	r.mu.Unlock()

	var errs []error
	for _, toolkit := range toolkits {
		if err := toolkit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing toolkit %s/%s: %w", toolkit.Kind(), toolkit.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func toolkitKey(kind, name string) string {
	return kind + "/" + name
}
