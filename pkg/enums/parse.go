package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parseEnum matches raw input against the allowed set after trimming and
// lower-casing it, so query strings like "Farmer" still resolve.
func parseEnum[T ~string](value string, allowed []T, kind string) (T, error) {
	candidate := T(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(allowed, candidate) {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
