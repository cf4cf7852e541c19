// Package logging provides redaction helpers for anything that may carry
// datasource credentials: connection strings, driver errors, SQL text.
package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of SQL logged per attempt.
	MaxQueryLogLength = 200
	// RedactedText replaces sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// api_key=xxxx style values (LLM provider keys)
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey)=[A-Za-z0-9-_]{8,}`)

	// user:pass@host inside connection URLs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes credential material from a connection
// string before it is logged or stored in a connection's last_error.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeError sanitizes an error message that may echo credentials.
// Driver errors for bad auth frequently include the full DSN.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeQuery truncates SQL for logging and strips credential-shaped values.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	sanitized := query
	if len(sanitized) > MaxQueryLogLength {
		sanitized = sanitized[:MaxQueryLogLength] + "..."
	}
	return passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}
