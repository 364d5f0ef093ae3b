package bulk

import (
	"sort"
	"strings"
)

// Trim returns the string with surrounding whitespace removed
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// TrimUpper trims and upper-cases, used for vehicle identifiers so later
// equality checks are case-insensitive by construction
func TrimUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// TrimLower trims and lower-cases, used for emails and usernames
func TrimLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fold lower-cases a value for set membership checks
func Fold(s string) string {
	return strings.ToLower(s)
}

// RequireFields checks the given field name/value pairs and returns a
// ValidationError naming every blank one. index is the 0-based position of
// the record in the payload.
func RequireFields(index int, fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &ValidationError{Record: index + 1, Fields: missing}
}
