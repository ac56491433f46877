// Package postgres provides the PostgreSQL backend toolkit for the data
// gateway: read-only query execution, catalog introspection, and
// foreign-key discovery over pooled sessions.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"

	"github.com/txn2/mcp-data-gateway/pkg/audit"
	"github.com/txn2/mcp-data-gateway/pkg/pool"
	"github.com/txn2/mcp-data-gateway/pkg/query"
)

const connectProbeTimeout = 5 * time.Second

// Toolkit wraps a PostgreSQL backend for the gateway.
type Toolkit struct {
	name     string
	config   Config
	db       *sql.DB
	pool     *pool.Pool[*sql.Conn]
	executor *query.Executor[*sql.Conn]
	auditor  *audit.Logger
}

// New creates a PostgreSQL toolkit and probes the backend by opening the
// pool's minimum sessions. A probe failure is returned as an error; the
// caller exits rather than running degraded.
func New(name string, cfg Config, auditor *audit.Logger) (*Toolkit, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	db.SetMaxOpenConns(cfg.PoolMax)

	ctx, cancel := context.WithTimeout(context.Background(), connectProbeTimeout)
	defer cancel()

	p, err := pool.New(ctx, pool.Config{
		Backend: "postgres",
		MinSize: cfg.PoolMin,
		MaxSize: cfg.PoolMax,
		Policy:  cfg.PoolPolicy,
	}, sessionFactory(db, cfg), closeSession)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Toolkit{
		name:     name,
		config:   cfg,
		db:       db,
		pool:     p,
		executor: query.NewExecutor("postgres", p, cfg.Limits(), auditor),
		auditor:  auditor,
	}, nil
}

// sessionFactory pins one connection and locks it to read-only transactions
// with a server-side statement timeout for the session's lifetime.
func sessionFactory(db *sql.DB, cfg Config) pool.Factory[*sql.Conn] {
	return func(ctx context.Context) (*sql.Conn, error) {
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := conn.ExecContext(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("setting session read-only: %w", err)
		}
		timeoutMS := cfg.MaxQueryTime.Milliseconds()
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET statement_timeout = %d", timeoutMS)); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("setting statement timeout: %w", err)
		}
		return conn, nil
	}
}

func closeSession(conn *sql.Conn) error {
	return conn.Close()
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "postgres"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// RegisterTools registers PostgreSQL tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "postgres_list_tables",
		Description: "List all tables and views in the configured schema.",
	}, t.handleListTables)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "postgres_get_schema",
		Description: "Describe a table's columns: name, declared type, nullability, and default.",
	}, t.handleGetSchema)
	mcp.AddTool(s, &mcp.Tool{
		Name: "postgres_query",
		Description: "Execute a read-only SQL query. Only SELECT, SHOW, EXPLAIN, and WITH " +
			"statements are allowed; results are capped at the configured row limit.",
	}, t.handleQuery)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "postgres_sample",
		Description: "Return the first rows of a table, up to the requested limit.",
	}, t.handleSample)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "postgres_count",
		Description: "Return the total number of rows in a table.",
	}, t.handleCount)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "postgres_foreign_keys",
		Description: "List foreign key relationships for a table.",
	}, t.handleForeignKeys)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "postgres_search",
		Description: "Search for a keyword across all text columns of a table.",
	}, t.handleSearch)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{
		"postgres_list_tables",
		"postgres_get_schema",
		"postgres_query",
		"postgres_sample",
		"postgres_count",
		"postgres_foreign_keys",
		"postgres_search",
	}
}

// Close releases the pool and the underlying database handle.
func (t *Toolkit) Close() error {
	err := t.pool.Close()
	if dbErr := t.db.Close(); dbErr != nil && err == nil {
		err = dbErr
	}
	return err
}

// Verify interface compliance.
var _ interface {
	Kind() string
	Name() string
	RegisterTools(s *mcp.Server)
	Tools() []string
	Close() error
} = (*Toolkit)(nil)
