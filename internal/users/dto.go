package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

const (
	statusActive    = "Active"
	statusNonActive = "Non-Active"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	PhoneNumber string         `json:"phone_number"`
	Email       *string        `json:"email,omitempty"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"is_active"`
	Status      string         `json:"status"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	PhoneNumber  string
	Email        *string
	PasswordHash string
	Role         enums.UserRole
	IsActive     *bool
	Status       bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	status := statusNonActive
	if u.Status {
		status = statusActive
	}
	return &UserDTO{
		ID:          u.ID,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		Role:        u.Role,
		IsActive:    u.IsActive,
		Status:      status,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		PhoneNumber:  c.PhoneNumber,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Role:         c.Role,
		IsActive:     isActive,
		Status:       c.Status,
	}
}
