// Package sql provides safety validation for generated SQL before it is
// allowed anywhere near a registered datasource.
package sql

import (
	"fmt"
	"strings"

	"github.com/tabular-ai/tabular-engine/pkg/apperrors"
)

// forbiddenKeywords are statement keywords that must never appear anywhere
// in a validated query, even in subqueries or CTE bodies.
var forbiddenKeywords = map[string]struct{}{
	"INSERT":   {},
	"UPDATE":   {},
	"DELETE":   {},
	"DROP":     {},
	"ALTER":    {},
	"CREATE":   {},
	"TRUNCATE": {},
	"GRANT":    {},
	"REVOKE":   {},
	"MERGE":    {},
	"EXEC":     {},
	"EXECUTE":  {},
}

// ValidateReadOnly checks that a query is a single read-only statement and
// returns the normalized form (trailing semicolon stripped).
//
// The validation order is:
//  1. Trim whitespace and strip one trailing semicolon (normalize)
//  2. Reject any remaining semicolon outside string literals
//  3. Strip comments, then reject forbidden keywords appearing as whole
//     tokens outside string literals
//  4. Require the first keyword to be SELECT or WITH
//
// Keyword text inside string literals is fine: WHERE note = 'DROP TABLE'
// passes. All rejections wrap apperrors.ErrQuerySafety.
func ValidateReadOnly(sqlQuery string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(sqlQuery))

	if normalized == "" {
		return "", fmt.Errorf("%w: empty query", apperrors.ErrQuerySafety)
	}

	if hasSemicolonOutsideStrings(normalized) {
		return "", fmt.Errorf("%w: multiple statements are not allowed", apperrors.ErrQuerySafety)
	}

	stripped := stripComments(normalized)

	tokens := tokenizeOutsideStrings(stripped)
	if len(tokens) == 0 {
		return "", fmt.Errorf("%w: empty query", apperrors.ErrQuerySafety)
	}

	first := strings.ToUpper(tokens[0])
	if first != "SELECT" && first != "WITH" {
		return "", fmt.Errorf("%w: only SELECT statements are allowed, got %s", apperrors.ErrQuerySafety, first)
	}

	for _, tok := range tokens {
		upper := strings.ToUpper(tok)
		if _, forbidden := forbiddenKeywords[upper]; forbidden {
			return "", fmt.Errorf("%w: statement contains forbidden keyword %s", apperrors.ErrQuerySafety, upper)
		}
	}

	return normalized, nil
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace
// around it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}
	return sqlQuery
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handle both backslash escape (\') and SQL standard escape ('')
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripComments removes -- line comments and /* */ block comments that sit
// outside string literals. Keyword scans run on the stripped text so a
// commented-out DROP does not trip the gate, and a DROP hidden behind a
// comment marker does.
func stripComments(sqlQuery string) string {
	var b strings.Builder
	b.Grow(len(sqlQuery))

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	runes := []rune(sqlQuery)

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			if c == '-' && next == '-' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			if c == '\'' {
				state = stateSingleQuote
			} else if c == '"' {
				state = stateDoubleQuote
			}
			b.WriteRune(c)
		case stateSingleQuote:
			b.WriteRune(c)
			if c == '\'' && (i == 0 || runes[i-1] != '\\') {
				state = stateNormal
			}
		case stateDoubleQuote:
			b.WriteRune(c)
			if c == '"' && (i == 0 || runes[i-1] != '\\') {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				b.WriteRune(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
				// Replace the comment with a space so adjacent tokens
				// do not fuse into one.
				b.WriteRune(' ')
			}
		}
	}

	return b.String()
}

// tokenizeOutsideStrings splits SQL into word tokens, skipping everything
// inside string literals and quoted identifiers.
func tokenizeOutsideStrings(sqlQuery string) []string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	var tokens []string
	var current strings.Builder
	state := stateNormal
	prevChar := rune(0)

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch {
			case char == '\'':
				flush()
				state = stateSingleQuote
			case char == '"':
				flush()
				state = stateDoubleQuote
			case isWordChar(char):
				current.WriteRune(char)
			default:
				flush()
			}
		case stateSingleQuote:
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}
	flush()

	return tokens
}

func isWordChar(c rune) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
