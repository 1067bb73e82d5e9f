package auth

import (
	"github.com/google/uuid"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// Actor is the authenticated caller handed to domain services.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsStaff reports whether the actor has back-office visibility.
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// Is reports whether the actor holds one of the provided roles.
func (a Actor) Is(roles ...enums.UserRole) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// ActorFromClaims converts parsed token claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}
