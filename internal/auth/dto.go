package auth

import (
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/users"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	PhoneNumber string `json:"phone" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// TokenPair is returned by a refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest is the self-service sign-up payload.
type RegisterRequest struct {
	PhoneNumber     string         `json:"phone" validate:"required,phone"`
	Email           *string        `json:"email,omitempty" validate:"omitempty,email"`
	Role            enums.UserRole `json:"role" validate:"required"`
	Password        string         `json:"password" validate:"required"`
	ConfirmPassword string         `json:"confirm_password" validate:"required"`
}

// CreateUserRequest is an admin-created account; the password is generated.
type CreateUserRequest struct {
	PhoneNumber string         `json:"phone" validate:"required,phone"`
	Email       *string        `json:"email,omitempty" validate:"omitempty,email"`
	Role        enums.UserRole `json:"role" validate:"required"`
}

// CreatedUser carries the generated password when no email was supplied to
// deliver it.
type CreatedUser struct {
	User              *users.UserDTO `json:"user"`
	GeneratedPassword string         `json:"generated_password,omitempty"`
	Warning           string         `json:"warning,omitempty"`
}
