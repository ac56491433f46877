package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/txn2/mcp-data-gateway/pkg/query"
)

// listTables reads table names from information_schema, ordered by name.
func (t *Toolkit) listTables(ctx context.Context, conn *sql.Conn) ([]string, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = ?
		 ORDER BY TABLE_NAME`, t.config.Database)
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

// tableSchema reads column metadata from information_schema. Exact, not
// sampled: every column is reported with its declared type, nullability,
// and key attribute.
func (t *Toolkit) tableSchema(ctx context.Context, conn *sql.Conn, table string) (*query.Schema, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY, COLUMN_DEFAULT
		 FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		 ORDER BY ORDINAL_POSITION`, t.config.Database, table)
	if err != nil {
		return nil, fmt.Errorf("reading table schema: %w", err)
	}
	defer rows.Close()

	schema := &query.Schema{Target: table}
	for rows.Next() {
		var name, columnType, isNullable, columnKey string
		var colDefault sql.NullString
		if err := rows.Scan(&name, &columnType, &isNullable, &columnKey, &colDefault); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		nullable := isNullable == "YES"
		types := []string{columnType}
		if columnKey != "" {
			types = append(types, "key:"+columnKey)
		}
		field := query.SchemaField{
			Name:     name,
			Types:    types,
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

// foreignKeys reads referential-constraint edges for one table from
// KEY_COLUMN_USAGE. No edges is an informational result, not an error.
func (t *Toolkit) foreignKeys(ctx context.Context, conn *sql.Conn, schema, table string) ([]query.ForeignKeyEdge, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		 FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		 WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		   AND REFERENCED_TABLE_NAME IS NOT NULL
		 ORDER BY ORDINAL_POSITION`, schema, table)
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
		`SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		   AND DATA_TYPE IN ('varchar', 'char', 'text', 'tinytext', 'mediumtext', 'longtext')
		 ORDER BY ORDINAL_POSITION`, t.config.Database, table)
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
