// Package redact strips sensitive fragments from strings before they are
// logged or returned in error responses: connection strings, credentials,
// and filesystem paths that would leak deployment details.
package redact

import "regexp"

// Redaction placeholders.
const (
	PathPlaceholder       = "[REDACTED_PATH]"
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
)

var (
	// Database connection strings with embedded credentials.
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`)

	// Key/secret/token assignments.
	credentialRegex = regexp.MustCompile(
		`(?i)(password|passwd|secret|token|api[_-]?key)(['"\s:=]+)[^'"&\s]{3,}`)

	// Absolute filesystem paths.
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
)

// String returns s with sensitive fragments replaced by placeholders.
func String(s string) string {
	s = dbConnRegex.ReplaceAllString(s, "$1://"+CredentialPlaceholder+"@")
	s = credentialRegex.ReplaceAllString(s, "$1$2"+CredentialPlaceholder)
	s = unixPathRegex.ReplaceAllString(s, PathPlaceholder)
	return s
}

// Error returns the redacted message of err, or "" for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
