// Package warehouse owns the connection to the analytical database and
// the cached query path in front of it. Connection pooling, SQL
// execution, and authentication are the driver's problem; this package
// only memoizes the handle and the results.
package warehouse

import (
	"fmt"
	"strings"
	"time"
)

// ResultSet is the tabular output of a query. Rows are ordered as the
// driver returned them; values are driver-native scalars with []byte
// normalized to string.
type ResultSet struct {
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	RowCount int           `json:"row_count"`
	Duration time.Duration `json:"-"`
}

// ConnectionError marks a credential or network failure while opening
// the warehouse session. Query failures are returned unwrapped.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("warehouse connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsReadOnly reports whether the statement is acceptable on the ad-hoc
// query surface. The statement must start with SELECT or WITH and must
// not contain a write keyword outside of string literals or quoted
// identifiers, so CTE-bodied DML such as
// "WITH t AS (SELECT 1) DELETE FROM MENU" is rejected too.
func IsReadOnly(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	if normalized == "" {
		return false
	}
	if !strings.HasPrefix(normalized, "select") && !strings.HasPrefix(normalized, "with") {
		return false
	}
	for _, word := range bareWords(normalized) {
		if _, forbidden := writeKeywords[word]; forbidden {
			return false
		}
	}
	return true
}

var writeKeywords = map[string]struct{}{
	"insert":   {},
	"update":   {},
	"delete":   {},
	"drop":     {},
	"alter":    {},
	"create":   {},
	"truncate": {},
	"merge":    {},
	"grant":    {},
	"revoke":   {},
	"copy":     {},
}

// bareWords yields the identifier-like tokens of a statement, skipping
// single-quoted literals and double-quoted identifiers.
func bareWords(statement string) []string {
	words := make([]string, 0, 16)
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		switch {
		case c == '\'' || c == '"':
			flush()
			quote := c
			i++
			for i < len(statement) && statement[i] != quote {
				i++
			}
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_':
			current.WriteByte(c)
		default:
			flush()
		}
	}
	flush()
	return words
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
