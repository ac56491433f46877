package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/txn2/mcp-data-gateway/pkg/query"
)

// listTables reads table and view names from the catalog, ordered by name.
func (t *Toolkit) listTables(ctx context.Context, conn *sql.Conn) ([]string, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'VIEW')
		 ORDER BY table_name`, t.config.Schema)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// tableSchema reads column metadata from the catalog. Unlike the sampled
// document-store schema, this is exact: every column is reported with its
// declared type and nullability.
func (t *Toolkit) tableSchema(ctx context.Context, conn *sql.Conn, table string) (*query.Schema, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT column_name, data_type, is_nullable, column_default
		 FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`, t.config.Schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading table schema: %w", err)
	}
	defer rows.Close()

	schema := &query.Schema{Target: table}
	for rows.Next() {
		var name, dataType, isNullable string
		var colDefault sql.NullString
		if err := rows.Scan(&name, &dataType, &isNullable, &colDefault); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		nullable := isNullable == "YES"
		field := query.SchemaField{
			Name:     name,
			Types:    []string{dataType},
			Nullable: &nullable,
		}
		if colDefault.Valid {
			field.Default = colDefault.String
		}
		schema.Fields = append(schema.Fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	schema.TotalFields = len(schema.Fields)
	return schema, nil
}

// foreignKeys reads referential-constraint edges for one table, scoped to
// the given schema. No edges is an informational result, not an error.
func (t *Toolkit) foreignKeys(ctx context.Context, conn *sql.Conn, schema, table string) ([]query.ForeignKeyEdge, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT kcu.column_name, ccu.table_name, ccu.column_name
		 FROM information_schema.table_constraints tc
		 JOIN information_schema.key_column_usage kcu
		   ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		 JOIN information_schema.constraint_column_usage ccu
		   ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		 WHERE tc.constraint_type = 'FOREIGN KEY'
		   AND tc.table_schema = $1 AND tc.table_name = $2
		 ORDER BY kcu.ordinal_position`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading foreign keys: %w", err)
	}
	defer rows.Close()

	var edges []query.ForeignKeyEdge
	for rows.Next() {
		var edge query.ForeignKeyEdge
		if err := rows.Scan(&edge.SourceColumn, &edge.ReferencedTable, &edge.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("scanning foreign key: %w", err)
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

// textColumns returns the columns of a table whose declared type is textual,
// used to scope keyword search.
func (t *Toolkit) textColumns(ctx context.Context, conn *sql.Conn, table string) ([]string, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		   AND data_type IN ('character varying', 'varchar', 'character', 'char', 'text')
		 ORDER BY ordinal_position`, t.config.Schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading text columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column name: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}
