package canonical

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// binaryColumnTypes are the declared column types whose []byte values are
// genuine binary payloads. Every other []byte a driver hands back is text
// (lib/pq and go-sql-driver/mysql both surface NUMERIC, DECIMAL, and
// unspecified text columns as []byte).
var binaryColumnTypes = map[string]bool{
	"BYTEA":      true,
	"BLOB":       true,
	"TINYBLOB":   true,
	"MEDIUMBLOB": true,
	"LONGBLOB":   true,
	"BINARY":     true,
	"VARBINARY":  true,
}

// decimalColumnTypes are declared types whose textual driver values must
// stay exact instead of collapsing into float64.
var decimalColumnTypes = map[string]bool{
	"NUMERIC": true,
	"DECIMAL": true,
	"MONEY":   true,
}

// ScanRows drains a relational result set into canonical rows, reading at
// most max rows when max is positive. Column type metadata decides whether a
// raw []byte is binary, an exact numeric, or text; temporal values become
// canonical dates.
func ScanRows(rows *sql.Rows, max int) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		if max > 0 && len(out) >= max {
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = canonicalSQLValue(values[i], types[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

func canonicalSQLValue(v any, colType *sql.ColumnType) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return Date(val)
	case []byte:
		declared := strings.ToUpper(colType.DatabaseTypeName())
		switch {
		case binaryColumnTypes[declared]:
			return Binary(val)
		case decimalColumnTypes[declared]:
			return Decimal(string(val))
		default:
			return string(val)
		}
	default:
		return v
	}
}
