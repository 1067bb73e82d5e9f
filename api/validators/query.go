package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

// ParseQueryInt reads key as an integer in [min, max], falling back to
// defaultVal when absent.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Validation(key, "must be a whole number")
	}
	if value < min || value > max {
		return 0, pkgerrors.Validation(key, fmt.Sprintf("must be between %d and %d", min, max))
	}
	return value, nil
}

// ParseQueryBool reads key as a boolean flag; absent means false.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.Validation(key, "must be true or false")
	}
	return value, nil
}

// ParseQueryEnum lower-cases key and checks it with valid. Absent returns nil.
func ParseQueryEnum[T ~string](r *http.Request, key string, valid func(T) bool) (*T, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	value := T(strings.ToLower(raw))
	if !valid(value) {
		return nil, pkgerrors.Validation(key, "unsupported value "+raw)
	}
	return &value, nil
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
