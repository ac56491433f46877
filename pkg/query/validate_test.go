package query

import (
	"strings"
	"testing"
)

func TestValidateSQL_Allowed(t *testing.T) {
	queries := []string{
		"SELECT * FROM users",
		"select id, name from users where id = 1",
		"SELECT * FROM users LIMIT 10;",
		"SHOW TABLES",
		"DESCRIBE users",
		"DESC users",
		"EXPLAIN SELECT * FROM users",
		"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
		"TABLE users",
		"  SELECT 1  ",
		"SELECT(1)",
		"SELECT * FROM audit_log WHERE action = 'DROP TABLE users'",
		"SELECT created_at, updated_at FROM users",
		"SELECT * FROM users -- trailing comment",
		"SELECT * FROM users /* block comment */ WHERE id = 1",
	}

	for _, q := range queries {
		verdict := ValidateSQL(q)
		if !verdict.Allowed {
			t.Errorf("ValidateSQL(%q) denied: %s", q, verdict.Reason)
		}
	}
}

func TestValidateSQL_Denied(t *testing.T) {
	tests := []struct {
		sql    string
		reason string
	}{
		{"", "empty query"},
		{"   ", "empty query"},
		{"INSERT INTO users VALUES (1)", "leading keyword not allowed"},
		{"UPDATE users SET name = 'x'", "leading keyword not allowed"},
		{"DELETE FROM users", "leading keyword not allowed"},
		{"DROP TABLE users", "leading keyword not allowed"},
		{"TRUNCATE users", "leading keyword not allowed"},
		{"SELECTX * FROM users", "leading keyword not allowed"},
		{"SELECT * FROM t; DROP TABLE t", "forbidden operation present: DROP"},
		{"SELECT * FROM t WHERE id IN (DELETE FROM t)", "forbidden operation present: DELETE"},
		{"EXPLAIN INSERT INTO users VALUES (1)", "forbidden operation present: INSERT"},
		{"WITH x AS (SELECT 1) INSERT INTO t SELECT * FROM x", "forbidden operation present: INSERT"},
		{"SELECT * FROM users; SELECT * FROM orders", "multiple statements are not allowed"},
	}

	for _, tc := range tests {
		verdict := ValidateSQL(tc.sql)
		if verdict.Allowed {
			t.Errorf("ValidateSQL(%q) allowed, want denied", tc.sql)
			continue
		}
		if verdict.Reason != tc.reason {
			t.Errorf("ValidateSQL(%q) reason = %q, want %q", tc.sql, verdict.Reason, tc.reason)
		}
	}
}

func TestValidateSQL_ChecksAreIndependent(t *testing.T) {
	// An allow-listed prefix grants no exemption from the blocklist.
	verdict := ValidateSQL("SELECT * FROM t UNION SELECT * FROM t2; GRANT ALL ON t TO evil")
	if verdict.Allowed {
		t.Fatal("expected denial")
	}
	if !strings.Contains(verdict.Reason, "GRANT") {
		t.Errorf("reason = %q, want blocklist hit for GRANT", verdict.Reason)
	}
}

func TestValidateSQL_KeywordInsideLiteral(t *testing.T) {
	// Keywords inside string literals must not trigger the blocklist.
	queries := []string{
		"SELECT * FROM logs WHERE msg = 'please DELETE this'",
		"SELECT * FROM logs WHERE msg = 'it''s an INSERT test'",
		`SELECT "update" FROM settings`,
	}
	for _, q := range queries {
		if verdict := ValidateSQL(q); !verdict.Allowed {
			t.Errorf("ValidateSQL(%q) denied: %s", q, verdict.Reason)
		}
	}
}

func TestValidateSQL_KeywordHiddenInComment(t *testing.T) {
	// Comments are stripped, so a separator inside one does not split the
	// statement and a keyword inside one cannot be smuggled out of a
	// literal either way.
	if verdict := ValidateSQL("SELECT * FROM t /* ; */ WHERE id = 1"); !verdict.Allowed {
		t.Errorf("unexpected denial: %s", verdict.Reason)
	}
}

func TestValidatePipeline(t *testing.T) {
	allowed := []map[string]any{
		{"$match": map[string]any{"status": "active"}},
		{"$group": map[string]any{"_id": "$type"}},
		{"$limit": 10},
	}
	if verdict := ValidatePipeline(allowed); !verdict.Allowed {
		t.Errorf("read pipeline denied: %s", verdict.Reason)
	}

	tests := []struct {
		name     string
		pipeline []map[string]any
	}{
		{"out stage", []map[string]any{{"$match": map[string]any{}}, {"$out": "dest"}}},
		{"merge stage", []map[string]any{{"$merge": map[string]any{"into": "dest"}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verdict := ValidatePipeline(tc.pipeline)
			if verdict.Allowed {
				t.Fatal("write stage allowed")
			}
			if !strings.Contains(verdict.Reason, "forbidden operation present") {
				t.Errorf("reason = %q", verdict.Reason)
			}
		})
	}

	if verdict := ValidatePipeline(nil); !verdict.Allowed {
		t.Errorf("empty pipeline denied: %s", verdict.Reason)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	valid := []string{"users", "Users_2", "public.users", "db1.schema_2.t3", "_internal"}
	for _, id := range valid {
		got, err := SanitizeIdentifier(id)
		if err != nil {
			t.Errorf("SanitizeIdentifier(%q) error: %v", id, err)
		}
		if got != id {
			t.Errorf("SanitizeIdentifier(%q) = %q", id, got)
		}
	}

	invalid := []string{"", "users; DROP TABLE users", "users--", "user name", `users"`, "users'", "таблица", "users)"}
	for _, id := range invalid {
		_, err := SanitizeIdentifier(id)
		if err == nil {
			t.Errorf("SanitizeIdentifier(%q) accepted, want error", id)
			continue
		}
		if kind := KindOf(err); kind != KindValidation {
			t.Errorf("SanitizeIdentifier(%q) error kind = %q, want %q", id, kind, KindValidation)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
		{"", ""},
	}
	for _, tc := range tests {
		if got := EscapeLike(tc.in); got != tc.want {
			t.Errorf("EscapeLike(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
