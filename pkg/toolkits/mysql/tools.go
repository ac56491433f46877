package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-data-gateway/pkg/audit"
	"github.com/txn2/mcp-data-gateway/pkg/canonical"
	"github.com/txn2/mcp-data-gateway/pkg/query"
	"github.com/txn2/mcp-data-gateway/pkg/toolkit"
)

type listTablesInput struct{}

type getSchemaInput struct {
	Table string `json:"table"`
}

type queryInput struct {
	SQL            string `json:"sql"`
	Limit          int    `json:"limit,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

type sampleInput struct {
	Table string `json:"table"`
	Limit int    `json:"limit,omitempty"`
}

type countInput struct {
	Table string `json:"table"`
}

type foreignKeysInput struct {
	Table string `json:"table"`
}

type searchInput struct {
	Table   string `json:"table"`
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit,omitempty"`
}

func (t *Toolkit) handleListTables(ctx context.Context, _ *mcp.CallToolRequest, _ listTablesInput) (*mcp.CallToolResult, any, error) {
	var names []string
	err := t.introspect(ctx, "mysql_list_tables", "", func(ctx context.Context, conn *sql.Conn) error {
		var opErr error
		names, opErr = t.listTables(ctx, conn)
		return opErr
	})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	if names == nil {
		names = []string{}
	}
	return toolkit.JSONResult(map[string]any{"tables": names, "count": len(names)})
}

func (t *Toolkit) handleGetSchema(ctx context.Context, _ *mcp.CallToolRequest, in getSchemaInput) (*mcp.CallToolResult, any, error) {
	table, err := query.SanitizeIdentifier(in.Table)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}

	var schema *query.Schema
	err = t.introspect(ctx, "mysql_get_schema", table, func(ctx context.Context, conn *sql.Conn) error {
		var opErr error
		schema, opErr = t.tableSchema(ctx, conn, table)
		return opErr
	})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	return toolkit.JSONResult(schema)
}

func (t *Toolkit) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, in queryInput) (*mcp.CallToolResult, any, error) {
	spec := query.Spec{
		SQL:     in.SQL,
		Limit:   in.Limit,
		Timeout: time.Duration(in.TimeoutSeconds) * time.Second,
	}

	// MAX_EXECUTION_TIME backstops the context deadline server-side for
	// SELECT; the row cap is enforced while scanning because allowed
	// statements like SHOW and EXPLAIN cannot carry a LIMIT clause.
	result, err := t.executor.Execute(ctx, "mysql_query", spec,
		func(ctx context.Context, conn *sql.Conn, fetchLimit int) ([]map[string]any, error) {
			rows, err := conn.QueryContext(ctx, in.SQL)
			if err != nil {
				return nil, err
			}
			defer rows.Close()
			return canonical.ScanRows(rows, fetchLimit)
		})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	return toolkit.JSONResult(result)
}

func (t *Toolkit) handleSample(ctx context.Context, _ *mcp.CallToolRequest, in sampleInput) (*mcp.CallToolResult, any, error) {
	table, err := query.SanitizeIdentifier(in.Table)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}

	spec := query.Spec{Target: table, Limit: in.Limit}
	result, err := t.executor.Execute(ctx, "mysql_sample", spec,
		func(ctx context.Context, conn *sql.Conn, fetchLimit int) ([]map[string]any, error) {
			sqlText, args, err := sq.Select("*").From(table).Limit(uint64(fetchLimit)).ToSql()
			if err != nil {
				return nil, err
			}
			rows, err := conn.QueryContext(ctx, sqlText, args...)
			if err != nil {
				return nil, err
			}
			defer rows.Close()
			return canonical.ScanRows(rows, fetchLimit)
		})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	return toolkit.JSONResult(result)
}

func (t *Toolkit) handleCount(ctx context.Context, _ *mcp.CallToolRequest, in countInput) (*mcp.CallToolResult, any, error) {
	table, err := query.SanitizeIdentifier(in.Table)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}

	var count int64
	err = t.introspect(ctx, "mysql_count", table, func(ctx context.Context, conn *sql.Conn) error {
		sqlText, _, err := sq.Select("COUNT(*)").From(table).ToSql()
		if err != nil {
			return err
		}
		return conn.QueryRowContext(ctx, sqlText).Scan(&count)
	})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	return toolkit.JSONResult(map[string]any{"table": table, "row_count": count})
}

func (t *Toolkit) handleForeignKeys(ctx context.Context, _ *mcp.CallToolRequest, in foreignKeysInput) (*mcp.CallToolResult, any, error) {
	table, err := query.SanitizeIdentifier(in.Table)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}

	var edges []query.ForeignKeyEdge
	err = t.introspect(ctx, "mysql_foreign_keys", table, func(ctx context.Context, conn *sql.Conn) error {
		var opErr error
		edges, opErr = t.foreignKeys(ctx, conn, t.config.Database, table)
		return opErr
	})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	if len(edges) == 0 {
		return toolkit.JSONResult(map[string]any{
			"table":        table,
			"foreign_keys": []query.ForeignKeyEdge{},
			"info":         fmt.Sprintf("no foreign keys found for table %q", table),
		})
	}
	return toolkit.JSONResult(map[string]any{"table": table, "foreign_keys": edges})
}

func (t *Toolkit) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, any, error) {
	table, err := query.SanitizeIdentifier(in.Table)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	if in.Keyword == "" {
		return toolkit.ErrorResult("keyword is required"), nil, nil
	}

	noTextColumns := false
	spec := query.Spec{Target: table, Limit: in.Limit}
	result, err := t.executor.Execute(ctx, "mysql_search", spec,
		func(ctx context.Context, conn *sql.Conn, fetchLimit int) ([]map[string]any, error) {
			columns, err := t.textColumns(ctx, conn, table)
			if err != nil {
				return nil, err
			}
			columns = sanitizedColumns(columns)
			if len(columns) == 0 {
				noTextColumns = true
				return nil, nil
			}

			// LIKE is already case-insensitive under the default
			// collations, so no ILIKE equivalent is needed.
			conditions := make(sq.Or, 0, len(columns))
			for _, col := range columns {
				conditions = append(conditions, sq.Like{col: "%" + query.EscapeLike(in.Keyword) + "%"})
			}
			sqlText, args, err := sq.Select("*").From(table).
				Where(conditions).Limit(uint64(fetchLimit)).ToSql()
			if err != nil {
				return nil, err
			}

			rows, err := conn.QueryContext(ctx, sqlText, args...)
			if err != nil {
				return nil, err
			}
			defer rows.Close()
			return canonical.ScanRows(rows, fetchLimit)
		})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	if noTextColumns {
		return toolkit.JSONResult(map[string]any{"info": "no searchable text columns found"})
	}
	return toolkit.JSONResult(result)
}

// sanitizedColumns drops catalog column names that cannot be safely
// interpolated into a dynamic statement.
func sanitizedColumns(columns []string) []string {
	safe := columns[:0]
	for _, col := range columns {
		if _, err := query.SanitizeIdentifier(col); err == nil {
			safe = append(safe, col)
		}
	}
	return safe
}

// introspect runs a metadata operation on a pooled session with the same
// scoped-release, timeout classification, and audit guarantees as query
// execution.
func (t *Toolkit) introspect(ctx context.Context, tool, target string, fn func(ctx context.Context, conn *sql.Conn) error) error {
	start := time.Now()
	err := t.pool.WithSession(ctx, func(ctx context.Context, conn *sql.Conn) error {
		opCtx, cancel := context.WithTimeout(ctx, t.config.MaxQueryTime)
		defer cancel()
		return fn(opCtx, conn)
	})
	err = query.Classify("mysql", err)
	t.auditIntrospect(tool, target, start, err)
	return err
}

func (t *Toolkit) auditIntrospect(tool, target string, start time.Time, err error) {
	if t.auditor == nil {
		return
	}
	duration := time.Since(start)
	if err != nil {
		t.auditor.Log(audit.NewEvent(audit.SeverityError, err.Error()).
			WithTool(tool, "mysql").
			WithTarget(target).
			WithResult(false, string(query.KindOf(err)), duration))
		return
	}
	t.auditor.Log(audit.NewEvent(audit.SeverityInfo, "introspection completed").
		WithTool(tool, "mysql").
		WithTarget(target).
		WithResult(true, "", duration))
}
