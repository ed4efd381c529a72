package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"
)

// SanitizeString drops control characters and trims surrounding whitespace.
// Tabs and newlines inside the text are kept.
func SanitizeString(input string) string {
	var result strings.Builder
	result.Grow(len(input))
	for _, r := range input {
		if r == '\t' || r == '\n' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// QueryFlag reports whether a query parameter is set to a true value (1, t, true, ...).
func QueryFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
