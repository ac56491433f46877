// Package canonical converts backend-native values into the single
// cross-backend exchange representation returned to callers.
//
// Extended types that plain JSON cannot carry losslessly are wrapped in
// single-key tagged objects: {"$date": RFC 3339}, {"$binary": base64},
// {"$oid": hex}, {"$decimal": string}. The tags are uniform across backends,
// so a caller never sees a driver-internal type name without the canonical
// value beside it, and a date can be reconstructed to the same instant it
// was serialized from.
package canonical

import (
	"encoding/base64"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// maxSampleValueLen bounds sample values embedded in inferred schemas.
const maxSampleValueLen = 50

// Date wraps an instant in its canonical form. RFC 3339 with nanosecond
// precision keeps the round trip exact.
func Date(t time.Time) map[string]any {
	return map[string]any{"$date": t.UTC().Format(time.RFC3339Nano)}
}

// DecodeDate reconstructs the instant from a canonical date value. It
// accepts the tagged map produced by Date and returns false for anything
// else.
func DecodeDate(v any) (time.Time, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return time.Time{}, false
	}
	s, ok := m["$date"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Binary wraps a binary payload in its canonical form.
func Binary(data []byte) map[string]any {
	return map[string]any{"$binary": base64.StdEncoding.EncodeToString(data)}
}

// ObjectID wraps a document object identifier in its canonical form.
func ObjectID(id bson.ObjectID) map[string]any {
	return map[string]any{"$oid": id.Hex()}
}

// Decimal wraps an arbitrary-precision numeric in its canonical form. The
// string carries the exact digits; converting to float64 would lose them.
func Decimal(s string) map[string]any {
	return map[string]any{"$decimal": s}
}

// Value canonicalizes one backend-native value, recursing through documents
// and arrays. Values already JSON-compatible pass through unchanged.
func Value(v any) any {
	switch val := v.(type) {
	case time.Time:
		return Date(val)
	case []byte:
		return Binary(val)
	case bson.ObjectID:
		return ObjectID(val)
	case bson.DateTime:
		return Date(val.Time())
	case bson.Binary:
		return Binary(val.Data)
	case bson.Decimal128:
		return Decimal(val.String())
	case bson.Null:
		return nil
	case bson.D:
		m := make(map[string]any, len(val))
		for _, elem := range val {
			m[elem.Key] = Value(elem.Value)
		}
		return m
	case bson.A:
		arr := make([]any, len(val))
		for i, item := range val {
			arr[i] = Value(item)
		}
		return arr
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = Value(item)
		}
		return m
	case []any:
		arr := make([]any, len(val))
		for i, item := range val {
			arr[i] = Value(item)
		}
		return arr
	default:
		return v
	}
}

// Document canonicalizes one row or document in place of its native form.
func Document(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = Value(v)
	}
	return out
}

// Rows canonicalizes a result set, preserving backend order.
func Rows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = Document(row)
	}
	return out
}

// TruncateSample renders a value as a bounded sample string for inferred
// schemas.
func TruncateSample(s string) string {
	if len(s) > maxSampleValueLen {
		return s[:maxSampleValueLen]
	}
	return s
}
