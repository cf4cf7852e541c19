package sql

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on one
// string literal in a generated query.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // The literal that was flagged
}

// CheckStringLiterals runs libinjection over every string literal in the
// query and returns a human-readable warning per suspicious literal.
//
// These are advisory: a literal that trips libinjection inside an already
// keyword-gated SELECT cannot mutate anything, but it is worth surfacing
// to the caller next to the generated query.
func CheckStringLiterals(sqlQuery string) []string {
	var warnings []string
	for _, result := range checkLiterals(sqlQuery) {
		warnings = append(warnings, fmt.Sprintf(
			"string literal %q matches a SQL injection fingerprint (%s)",
			truncateLiteral(result.Literal), result.Fingerprint))
	}
	return warnings
}

func checkLiterals(sqlQuery string) []InjectionCheckResult {
	var results []InjectionCheckResult
	for _, literal := range extractStringLiterals(sqlQuery) {
		if literal == "" {
			continue
		}
		isSQLi, fingerprint := libinjection.IsSQLi(literal)
		if isSQLi {
			results = append(results, InjectionCheckResult{
				IsSQLi:      true,
				Fingerprint: string(fingerprint),
				Literal:     literal,
			})
		}
	}
	return results
}

// extractStringLiterals returns the contents of all single-quoted string
// literals in the query. Doubled quotes ('') decode to one quote.
func extractStringLiterals(sqlQuery string) []string {
	var literals []string
	var current strings.Builder
	inString := false

	runes := []rune(sqlQuery)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if !inString {
			if c == '\'' {
				inString = true
				current.Reset()
			}
			continue
		}

		if c == '\'' {
			// Doubled quote is an escaped quote inside the literal.
			if i+1 < len(runes) && runes[i+1] == '\'' {
				current.WriteRune('\'')
				i++
				continue
			}
			inString = false
			literals = append(literals, current.String())
			continue
		}

		current.WriteRune(c)
	}

	return literals
}

func truncateLiteral(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
