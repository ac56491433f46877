package canonical

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func queryRows(t *testing.T, rows *sqlmock.Rows, max int) []map[string]any {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("creating sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	result, err := db.QueryContext(context.Background(), "SELECT * FROM t")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer result.Close()

	out, err := ScanRows(result, max)
	if err != nil {
		t.Fatalf("ScanRows: %v", err)
	}
	return out
}

func TestScanRows_PlainValues(t *testing.T) {
	rows := sqlmock.NewRows([]string{"id", "name", "active"}).
		AddRow(int64(1), "alice", true).
		AddRow(int64(2), "bob", false)

	out := queryRows(t, rows, 0)

	if len(out) != 2 {
		t.Fatalf("got %d rows, want 2", len(out))
	}
	if out[0]["id"] != int64(1) || out[0]["name"] != "alice" || out[0]["active"] != true {
		t.Errorf("unexpected first row: %v", out[0])
	}
}

func TestScanRows_TemporalValues(t *testing.T) {
	instant := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"created_at"}).AddRow(instant)

	out := queryRows(t, rows, 0)

	wrapped, ok := out[0]["created_at"].(map[string]any)
	if !ok {
		t.Fatalf("created_at = %T, want tagged date", out[0]["created_at"])
	}
	decoded, ok := DecodeDate(wrapped)
	if !ok || !decoded.Equal(instant) {
		t.Errorf("date round trip failed: %v", wrapped)
	}
}

func TestScanRows_ByteColumnsByDeclaredType(t *testing.T) {
	cols := []*sqlmock.Column{
		sqlmock.NewColumn("payload").OfType("BYTEA", []byte{}),
		sqlmock.NewColumn("price").OfType("NUMERIC", []byte{}),
		sqlmock.NewColumn("note").OfType("TEXT", []byte{}),
	}
	rows := sqlmock.NewRowsWithColumnDefinition(cols...).
		AddRow([]byte{0xDE, 0xAD}, []byte("19.99"), []byte("hello"))

	out := queryRows(t, rows, 0)
	row := out[0]

	payload, ok := row["payload"].(map[string]any)
	if !ok || payload["$binary"] != "3q0=" {
		t.Errorf("payload = %v, want tagged binary", row["payload"])
	}
	price, ok := row["price"].(map[string]any)
	if !ok || price["$decimal"] != "19.99" {
		t.Errorf("price = %v, want tagged decimal with exact digits", row["price"])
	}
	if row["note"] != "hello" {
		t.Errorf("note = %v, want plain string", row["note"])
	}
}

func TestScanRows_NullValues(t *testing.T) {
	rows := sqlmock.NewRows([]string{"name"}).AddRow(nil)

	out := queryRows(t, rows, 0)
	if out[0]["name"] != nil {
		t.Errorf("name = %v, want nil", out[0]["name"])
	}
}

func TestScanRows_MaxCapsRowCount(t *testing.T) {
	rows := sqlmock.NewRows([]string{"id"})
	for i := 0; i < 10; i++ {
		rows.AddRow(int64(i))
	}

	out := queryRows(t, rows, 4)
	if len(out) != 4 {
		t.Errorf("got %d rows, want 4", len(out))
	}
}

func TestScanRows_QueryErrorSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("creating sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"}).
		AddRow(int64(1)).
		RowError(0, sql.ErrConnDone)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	result, err := db.QueryContext(context.Background(), "SELECT id FROM t")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer result.Close()

	if _, err := ScanRows(result, 0); err == nil {
		t.Error("expected row error to surface")
	}
}
