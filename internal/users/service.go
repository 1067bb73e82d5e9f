package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// Service covers account lookups and admin account management.
type Service interface {
	Me(ctx context.Context, actor auth.Actor) (*UserDTO, error)
	List(ctx context.Context, actor auth.Actor, role *enums.UserRole) ([]UserDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error)
	Lookup(ctx context.Context, actor auth.Actor, phone, email string) (*UserDTO, error)
	Activate(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error)
	Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService wires the users service.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Me(ctx context.Context, actor auth.Actor) (*UserDTO, error) {
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, role *enums.UserRole) ([]UserDTO, error) {
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	if role != nil && !role.IsValid() {
		return nil, pkgerrors.Validation("role", "invalid role")
	}
	rows, err := s.repo.List(ctx, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error) {
	if !actor.IsStaff() && actor.UserID != id {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not authorized to access this user")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// Lookup finds a user by phone or email. Non-staff callers may only look
// themselves up.
func (s *service) Lookup(ctx context.Context, actor auth.Actor, phone, email string) (*UserDTO, error) {
	phone = strings.TrimSpace(phone)
	email = strings.ToLower(strings.TrimSpace(email))

	var (
		user *models.User
		err  error
	)
	switch {
	case phone != "":
		user, err = s.repo.FindByPhone(ctx, phone)
	case email != "":
		user, err = s.repo.FindByEmail(ctx, email)
	default:
		return nil, pkgerrors.Validation("phone", "phone or email is required")
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !actor.IsStaff() && user.ID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not authorized to access this user")
	}
	return FromModel(user), nil
}

func (s *service) Activate(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error) {
	return s.setActive(ctx, actor, id, true)
}

func (s *service) Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error) {
	return s.setActive(ctx, actor, id, false)
}

func (s *service) setActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*UserDTO, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	if !active && actor.UserID == id {
		return nil, pkgerrors.StateConflict("id", "you cannot deactivate your own account")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status == active {
		state := "deactivated"
		if active {
			state = "activated"
		}
		return nil, pkgerrors.StateConflict("status", "this user account is already "+state)
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user status")
	}
	user.Status = active
	user.IsActive = active

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":  id.String(),
			"admin_id": actor.UserID.String(),
			"active":   active,
		})
		s.logg.Info(logCtx, "user status changed")
	}
	return FromModel(user), nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	if actor.UserID == id {
		return pkgerrors.StateConflict("id", "you cannot delete your own account")
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
