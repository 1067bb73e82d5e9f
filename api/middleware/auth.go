package middleware

import (
	"net/http"
	"strings"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	pkgAuth "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth/session"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// Auth admits requests carrying a valid bearer token whose session is still
// live in Redis, and seeds the context with the caller's id and role.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			deny := func(err error) {
				responses.WriteError(ctx, logg, w, err)
			}

			token, ok := bearerToken(r)
			if !ok {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			switch {
			case pkgAuth.IsExpired(err):
				deny(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token expired"))
				return
			case err != nil:
				deny(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			case claims.ID == "":
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				live, err := verifier.HasSession(ctx, claims.ID)
				if err != nil {
					deny(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !live {
					deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "session ended, sign in again"))
					return
				}
			}

			actor := pkgAuth.ActorFromClaims(claims)
			ctx = WithRole(WithUserID(ctx, actor.UserID.String()), string(actor.Role))
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.UserID.String())
				ctx = logg.WithActorRole(ctx, string(actor.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>". A bare
// token without the scheme is accepted too.
func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, found := strings.Cut(raw, " "); found && strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	}
	return raw, raw != ""
}
