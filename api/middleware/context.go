package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	pkgAuth "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

type identityKey struct{}

// identity is the raw caller seeded by Auth. Values stay strings until
// ActorFromContext validates them.
type identity struct {
	userID string
	role   string
}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func withIdentity(ctx context.Context, update func(*identity)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id := identityFrom(ctx)
	update(&id)
	return context.WithValue(ctx, identityKey{}, id)
}

func UserIDFromContext(ctx context.Context) string { return identityFrom(ctx).userID }

func RoleFromContext(ctx context.Context) string { return identityFrom(ctx).role }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withIdentity(ctx, func(id *identity) { id.userID = userID })
}

func WithRole(ctx context.Context, role string) context.Context {
	return withIdentity(ctx, func(id *identity) { id.role = role })
}

// ActorFromContext returns the caller when both the id and the role parse.
func ActorFromContext(ctx context.Context) (pkgAuth.Actor, bool) {
	id := identityFrom(ctx)
	userID, err := uuid.Parse(id.userID)
	if err != nil {
		return pkgAuth.Actor{}, false
	}
	role, err := enums.ParseUserRole(id.role)
	if err != nil {
		return pkgAuth.Actor{}, false
	}
	return pkgAuth.Actor{UserID: userID, Role: role}, true
}

// RequestActor is ActorFromContext for handlers: on failure it has already
// written a 401.
func RequestActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (pkgAuth.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
	}
	return actor, ok
}
