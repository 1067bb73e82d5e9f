package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

// DecodeJSONBody reads exactly one JSON object of at most 1 MiB into dest,
// rejecting unknown fields, then applies its validate tags.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return bodyError(err)
	}
	if dec.More() {
		return pkgerrors.Validation("body", "request body must hold a single JSON object")
	}
	return checkStruct(dest)
}

func bodyError(err error) error {
	var (
		syntax   *json.SyntaxError
		mistyped *json.UnmarshalTypeError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return pkgerrors.Validation("body", "request body is empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return pkgerrors.Validation("body", "request body is truncated")
	case errors.As(err, &tooLarge):
		return pkgerrors.Validation("body", "request body is too large")
	case errors.As(err, &syntax):
		return pkgerrors.Validation("body", fmt.Sprintf("malformed JSON at offset %d", syntax.Offset))
	case errors.As(err, &mistyped) && mistyped.Field != "":
		return pkgerrors.Validation(mistyped.Field, "has the wrong type")
	}
	// encoding/json has no typed error for unknown fields.
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return pkgerrors.Validation(strings.Trim(field, `"`), "is not allowed")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
}
