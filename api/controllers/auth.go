package controllers

import (
	"net/http"
	"strings"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/validators"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/auth"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

func parseBearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
