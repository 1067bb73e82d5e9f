package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/users"
	pkgAuth "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	pkgmodels "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/db/models"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/security"
)

type stubUserRepository struct {
	byPhone   map[string]*pkgmodels.User
	byEmail   map[string]*pkgmodels.User
	created   *pkgmodels.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{
		byPhone: map[string]*pkgmodels.User{},
		byEmail: map[string]*pkgmodels.User{},
	}
}

func (s *stubUserRepository) FindByPhone(ctx context.Context, phone string) (*pkgmodels.User, error) {
	if user, ok := s.byPhone[phone]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byPhone[user.PhoneNumber] = user
	if user.Email != nil {
		s.byEmail[*user.Email] = user
	}
	s.created = user
	return user, nil
}

func newRegisterTestService(t *testing.T) (RegisterService, *stubUserRepository) {
	t.Helper()
	repo := newStubUserRepository()
	svc, err := NewRegisterService(RegisterServiceParams{
		Users:          repo,
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, repo
}

func sampleRegisterRequest(phone string, role enums.UserRole) RegisterRequest {
	return RegisterRequest{
		PhoneNumber:     phone,
		Role:            role,
		Password:        "Secret123!",
		ConfirmPassword: "Secret123!",
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func TestRegisterCreatesFarmer(t *testing.T) {
	svc, repo := newRegisterTestService(t)

	req := sampleRegisterRequest("  0788000001 ", enums.RoleFarmer)
	req.Email = strPtr(" Farmer@Example.com ")
	user, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.PhoneNumber != "0788000001" {
		t.Fatalf("expected trimmed phone, got %q", user.PhoneNumber)
	}
	if user.Email == nil || *user.Email != "farmer@example.com" {
		t.Fatalf("expected normalized email, got %v", user.Email)
	}
	if !user.IsActive || user.Status != "Non-Active" {
		t.Fatalf("unexpected activation flags: active=%v status=%s", user.IsActive, user.Status)
	}
	ok, err := security.VerifyPassword("Secret123!", repo.created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterRejectsPrivilegedRoles(t *testing.T) {
	svc, _ := newRegisterTestService(t)
	for _, role := range []enums.UserRole{enums.RoleAdmin, enums.RoleMinagriOfficer, "grower"} {
		_, err := svc.Register(context.Background(), sampleRegisterRequest("0788000002", role))
		assertCode(t, err, pkgerrors.CodeValidation)
	}
}

func TestRegisterPasswordRules(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	mismatch := sampleRegisterRequest("0788000003", enums.RoleBuyer)
	mismatch.ConfirmPassword = "Secret123?"
	_, err := svc.Register(context.Background(), mismatch)
	assertCode(t, err, pkgerrors.CodeValidation)

	weak := sampleRegisterRequest("0788000003", enums.RoleBuyer)
	weak.Password = "password"
	weak.ConfirmPassword = "password"
	_, err = svc.Register(context.Background(), weak)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRegisterDuplicatePhoneAndEmail(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	first := sampleRegisterRequest("0788000004", enums.RoleBuyer)
	first.Email = strPtr("buyer@example.com")
	if _, err := svc.Register(context.Background(), first); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Register(context.Background(), sampleRegisterRequest("0788000004", enums.RoleFarmer))
	assertCode(t, err, pkgerrors.CodeConflict)

	second := sampleRegisterRequest("0788000005", enums.RoleFarmer)
	second.Email = strPtr("BUYER@example.com")
	_, err = svc.Register(context.Background(), second)
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestRegisterCreateFailureIsDependencyError(t *testing.T) {
	svc, repo := newRegisterTestService(t)
	repo.createErr = errors.New("connection reset")

	_, err := svc.Register(context.Background(), sampleRegisterRequest("0788000006", enums.RoleBuyer))
	assertCode(t, err, pkgerrors.CodeDependency)
}

func TestCreateUserByAdmin(t *testing.T) {
	svc, repo := newRegisterTestService(t)
	admin := pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

	created, err := svc.CreateUser(context.Background(), admin, CreateUserRequest{
		PhoneNumber: "0788000007",
		Role:        enums.RoleMinagriOfficer,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if len(created.GeneratedPassword) != generatedPasswordLength || created.Warning == "" {
		t.Fatalf("expected generated password to be returned, got %+v", created)
	}
	ok, err := security.VerifyPassword(created.GeneratedPassword, repo.created.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("generated password does not verify: %v", err)
	}

	withEmail, err := svc.CreateUser(context.Background(), admin, CreateUserRequest{
		PhoneNumber: "0788000008",
		Email:       strPtr("officer@example.com"),
		Role:        enums.RoleMinagriOfficer,
	})
	if err != nil {
		t.Fatalf("create user with email: %v", err)
	}
	if withEmail.GeneratedPassword != "" {
		t.Fatalf("password should not be echoed when an email exists")
	}
}

func TestCreateUserRules(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	officer := pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleMinagriOfficer}
	_, err := svc.CreateUser(context.Background(), officer, CreateUserRequest{PhoneNumber: "0788000009", Role: enums.RoleFarmer})
	assertCode(t, err, pkgerrors.CodeForbidden)

	admin := pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	_, err = svc.CreateUser(context.Background(), admin, CreateUserRequest{PhoneNumber: "0788000009", Role: enums.RoleAdmin})
	assertCode(t, err, pkgerrors.CodeValidation)

	if _, err := svc.CreateUser(context.Background(), admin, CreateUserRequest{
		PhoneNumber: "0788000009",
		Email:       strPtr("admin2@example.com"),
		Role:        enums.RoleAdmin,
	}); err != nil {
		t.Fatalf("admin with email: %v", err)
	}
}
