package mysql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestConn(t *testing.T) (*Toolkit, *sql.Conn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("creating sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("acquiring conn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	kit := &Toolkit{
		name:   "mysql",
		config: Config{Database: "inventory"},
	}
	return kit, conn, mock
}

func TestListTables(t *testing.T) {
	kit, conn, mock := newTestConn(t)

	mock.ExpectQuery("SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES").
		WithArgs("inventory").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).
			AddRow("parts").
			AddRow("suppliers"))

	names, err := kit.listTables(context.Background(), conn)
	if err != nil {
		t.Fatalf("listTables() error: %v", err)
	}
	if len(names) != 2 || names[0] != "parts" {
		t.Errorf("listTables() = %v", names)
	}
}

func TestTableSchema(t *testing.T) {
	kit, conn, mock := newTestConn(t)

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.COLUMNS").
		WithArgs("inventory", "parts").
		WillReturnRows(sqlmock.NewRows(
			[]string{"COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_KEY", "COLUMN_DEFAULT"}).
			AddRow("id", "int(11)", "NO", "PRI", nil).
			AddRow("name", "varchar(255)", "YES", "", "unnamed"))

	schema, err := kit.tableSchema(context.Background(), conn, "parts")
	if err != nil {
		t.Fatalf("tableSchema() error: %v", err)
	}

	if schema.TotalFields != 2 {
		t.Fatalf("TotalFields = %d, want 2", schema.TotalFields)
	}
	id := schema.Fields[0]
	if id.Name != "id" || *id.Nullable {
		t.Errorf("id field = %+v", id)
	}
	if len(id.Types) != 2 || id.Types[1] != "key:PRI" {
		t.Errorf("id types = %v, want declared type plus key attribute", id.Types)
	}
	name := schema.Fields[1]
	if name.Default != "unnamed" || len(name.Types) != 1 {
		t.Errorf("name field = %+v", name)
	}
}

func TestForeignKeys(t *testing.T) {
	kit, conn, mock := newTestConn(t)

	mock.ExpectQuery("FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE").
		WithArgs("inventory", "parts").
		WillReturnRows(sqlmock.NewRows(
			[]string{"COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME"}).
			AddRow("supplier_id", "suppliers", "id"))

	edges, err := kit.foreignKeys(context.Background(), conn, "inventory", "parts")
	if err != nil {
		t.Fatalf("foreignKeys() error: %v", err)
	}
	if len(edges) != 1 || edges[0].ReferencedTable != "suppliers" {
		t.Errorf("foreignKeys() = %+v", edges)
	}
}

func TestTextColumns(t *testing.T) {
	kit, conn, mock := newTestConn(t)

	mock.ExpectQuery("SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS").
		WithArgs("inventory", "parts").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).
			AddRow("name").
			AddRow("description"))

	columns, err := kit.textColumns(context.Background(), conn, "parts")
	if err != nil {
		t.Fatalf("textColumns() error: %v", err)
	}
	if len(columns) != 2 || columns[1] != "description" {
		t.Errorf("textColumns() = %v", columns)
	}
}
