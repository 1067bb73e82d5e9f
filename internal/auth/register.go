package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/users"
	pkgAuth "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/security"
)

const generatedPasswordLength = 12

// RegisterService handles account creation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	CreateUser(ctx context.Context, actor pkgAuth.Actor, req CreateUserRequest) (*CreatedUser, error)
}

type accountStore interface {
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	Users          accountStore
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type registerService struct {
	users       accountStore
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &registerService{
		users:       params.Users,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

// Register signs up a farmer or buyer with a caller-chosen password.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	if req.Role != enums.RoleFarmer && req.Role != enums.RoleBuyer {
		return nil, pkgerrors.Validation("role", "only farmer and buyer accounts can self-register")
	}
	if req.Password != req.ConfirmPassword {
		return nil, pkgerrors.Validation("confirm_password", "passwords do not match")
	}
	if reason := security.CheckPasswordPolicy(req.Password); reason != "" {
		return nil, pkgerrors.Validation("password", reason)
	}

	user, err := s.create(ctx, req.PhoneNumber, req.Email, req.Role, req.Password)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

// CreateUser lets an admin open an account of any role with a generated
// password. The password is returned only when there is no email to send it to.
func (s *registerService) CreateUser(ctx context.Context, actor pkgAuth.Actor, req CreateUserRequest) (*CreatedUser, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	if !req.Role.IsValid() {
		return nil, pkgerrors.Validation("role", "invalid role")
	}
	password, err := security.GenerateTempPassword(generatedPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
	}

	user, err := s.create(ctx, req.PhoneNumber, req.Email, req.Role, password)
	if err != nil {
		return nil, err
	}
	out := &CreatedUser{User: users.FromModel(user)}
	if user.Email == nil {
		out.GeneratedPassword = password
		out.Warning = "Please securely share this password with the user."
	}
	return out, nil
}

func (s *registerService) create(ctx context.Context, rawPhone string, rawEmail *string, role enums.UserRole, password string) (*models.User, error) {
	phone := strings.TrimSpace(rawPhone)
	if phone == "" {
		return nil, pkgerrors.Validation("phone", "phone number is required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.Validation("role", "role is required")
	}
	var email *string
	if rawEmail != nil {
		if trimmed := strings.ToLower(strings.TrimSpace(*rawEmail)); trimmed != "" {
			email = &trimmed
		}
	}
	if role == enums.RoleAdmin && email == nil {
		return nil, pkgerrors.Validation("email", "admin accounts require an email")
	}

	if _, err := s.users.FindByPhone(ctx, phone); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a user with this phone number already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user phone")
	}
	if email != nil {
		if _, err := s.users.FindByEmail(ctx, *email); err == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a user with this email already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}
	}

	passwordHash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		PhoneNumber:  phone,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone number or email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": user.ID.String(),
			"role":    user.Role,
		})
		s.logg.Info(logCtx, "user registered")
	}
	return user, nil
}
