package query

import (
	"fmt"
	"regexp"
	"strings"
)

// allowedPrefixes are the leading keywords a raw query may start with. WITH
// covers common-table-expression forms; TABLE is the PostgreSQL shorthand for
// a bare table scan.
var allowedPrefixes = []string{"SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH", "TABLE"}

// blockedKeywords are operations that must never reach a backend: mutation,
// schema change, privilege change, bulk copy, and procedural execution. They
// are matched as whole words anywhere in the cleaned query, independent of
// the prefix check; an allow-listed prefix grants no exemption because the
// two checks catch different injection shapes.
var blockedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"GRANT", "REVOKE", "COPY", "EXECUTE", "CALL", "MERGE",
}

var blockedPatterns = compileBlockedPatterns()

func compileBlockedPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(blockedKeywords))
	for i, kw := range blockedKeywords {
		patterns[i] = regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])` + kw + `(?:[^a-zA-Z_]|$)`)
	}
	return patterns
}

// identifierPattern is the only syntax accepted for table, column, and schema
// names that get interpolated into backend-native statements.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// writeStages are aggregation stages that persist or export documents.
var writeStages = []string{"$out", "$merge"}

// ValidateSQL checks a raw SQL-like query against the read-only policy:
// allow-listed leading keyword, no blocklisted keyword anywhere, and no
// statement separator beyond a single trailing one. All checks run against
// the query with string literals and comments stripped, so keywords hidden
// in literals do not trigger false rejections and keywords hidden in
// concatenated statements still do.
func ValidateSQL(sql string) Verdict {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return Deny("empty query")
	}

	cleaned := stripStringsAndComments(trimmed)

	if !hasAllowedPrefix(cleaned) {
		return Deny("leading keyword not allowed")
	}

	// The blocklist scan is not short-circuited by the prefix check; both
	// must pass.
	for i, re := range blockedPatterns {
		if re.MatchString(cleaned) {
			return Deny(fmt.Sprintf("forbidden operation present: %s", blockedKeywords[i]))
		}
	}

	if hasMultipleStatements(cleaned) {
		return Deny("multiple statements are not allowed")
	}

	return Allow()
}

// ValidatePipeline rejects aggregation pipelines containing any write or
// export stage. Every stage is inspected; one violation anywhere rejects the
// whole pipeline.
func ValidatePipeline(pipeline []map[string]any) Verdict {
	for _, stage := range pipeline {
		for _, ws := range writeStages {
			if _, ok := stage[ws]; ok {
				return Deny(fmt.Sprintf("forbidden operation present: %s stage", ws))
			}
		}
	}
	return Allow()
}

// SanitizeIdentifier verifies that a table, column, or schema name matches
// the restricted identifier syntax before it is substituted into a
// backend-native statement. This call is mandatory at every interpolation
// site; validator success on the surrounding request does not imply it.
func SanitizeIdentifier(identifier string) (string, error) {
	if !identifierPattern.MatchString(identifier) {
		return "", NewValidationError(fmt.Sprintf("invalid identifier: %q", identifier))
	}
	return identifier, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE pattern metacharacters in a keyword so caller
// input matches literally instead of acting as wildcards.
func EscapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}

func hasAllowedPrefix(cleaned string) bool {
	upper := strings.ToUpper(strings.TrimSpace(cleaned))
	for _, prefix := range allowedPrefixes {
		if upper == prefix || strings.HasPrefix(upper, prefix+" ") ||
			strings.HasPrefix(upper, prefix+"\t") || strings.HasPrefix(upper, prefix+"\n") ||
			strings.HasPrefix(upper, prefix+"(") {
			return true
		}
	}
	return false
}

// hasMultipleStatements reports whether the cleaned query contains a
// statement separator with anything after it. A single trailing semicolon is
// tolerated.
func hasMultipleStatements(cleaned string) bool {
	idx := strings.Index(cleaned, ";")
	if idx < 0 {
		return false
	}
	return strings.TrimSpace(cleaned[idx+1:]) != ""
}

// stripStringsAndComments removes single-quoted strings, double-quoted
// identifiers, line comments, and block comments so keyword detection cannot
// be confused by literal content. Quoted regions are replaced with a space to
// preserve token boundaries.
func stripStringsAndComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	for i := 0; i < len(sql); {
		switch {
		case sql[i] == '\'' || sql[i] == '"':
			quote := sql[i]
			i++
			for i < len(sql) {
				if sql[i] == quote {
					// Doubled quote is an escaped quote inside the literal.
					if i+1 < len(sql) && sql[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				if sql[i] == '\\' && i+1 < len(sql) {
					i++
				}
				i++
			}
			b.WriteByte(' ')
		case sql[i] == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case sql[i] == '#':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case sql[i] == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i += 2
			for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			if i+1 < len(sql) {
				i += 2
			} else {
				i = len(sql)
			}
			b.WriteByte(' ')
		default:
			b.WriteByte(sql[i])
			i++
		}
	}

	return b.String()
}
