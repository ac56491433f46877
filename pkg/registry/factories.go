package registry

import (
	"github.com/txn2/mcp-data-gateway/pkg/audit"
	mongodbkit "github.com/txn2/mcp-data-gateway/pkg/toolkits/mongodb"
	mysqlkit "github.com/txn2/mcp-data-gateway/pkg/toolkits/mysql"
	postgreskit "github.com/txn2/mcp-data-gateway/pkg/toolkits/postgres"
)

// RegisterBuiltinFactories registers the factories for all built-in backend
// kinds. The audit logger is shared across every toolkit instance.
func RegisterBuiltinFactories(r *Registry, auditor *audit.Logger) {
	r.RegisterFactory("mongodb", MongoDBFactory(auditor))
	r.RegisterFactory("postgres", PostgresFactory(auditor))
	r.RegisterFactory("mysql", MySQLFactory(auditor))
}

// MongoDBFactory creates MongoDB toolkits from configuration.
func MongoDBFactory(auditor *audit.Logger) ToolkitFactory {
	return func(name string, cfg map[string]any) (Toolkit, error) {
		config, err := mongodbkit.ParseConfig(cfg)
		if err != nil {
			return nil, err
		}
		return mongodbkit.New(name, config, auditor)
	}
}

// PostgresFactory creates PostgreSQL toolkits from configuration.
func PostgresFactory(auditor *audit.Logger) ToolkitFactory {
	return func(name string, cfg map[string]any) (Toolkit, error) {
		config, err := postgreskit.ParseConfig(cfg)
		if err != nil {
			return nil, err
		}
		return postgreskit.New(name, config, auditor)
	}
}

// MySQLFactory creates MySQL toolkits from configuration.
func MySQLFactory(auditor *audit.Logger) ToolkitFactory {
	return func(name string, cfg map[string]any) (Toolkit, error) {
		config, err := mysqlkit.ParseConfig(cfg)
		if err != nil {
			return nil, err
		}
		return mysqlkit.New(name, config, auditor)
	}
}
