package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/middleware"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/internal/users"
	pkgAuth "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/auth"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/enums"
)

type stubAuthService struct {
	loginResp    *auth.LoginResponse
	loginErr     error
	lastLogin    auth.LoginRequest
	refreshPair  *auth.TokenPair
	refreshErr   error
	lastAccess   string
	lastRefresh  string
	logoutErr    error
	loggedOutTok string
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.lastLogin = req
	return s.loginResp, s.loginErr
}

func (s *stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	s.lastAccess = accessToken
	s.lastRefresh = refreshToken
	return s.refreshPair, s.refreshErr
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	s.loggedOutTok = accessToken
	return s.logoutErr
}

type stubRegisterService struct {
	user      *users.UserDTO
	created   *auth.CreatedUser
	err       error
	lastActor pkgAuth.Actor
}

func (s *stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return s.user, s.err
}

func (s *stubRegisterService) CreateUser(ctx context.Context, actor pkgAuth.Actor, req auth.CreateUserRequest) (*auth.CreatedUser, error) {
	s.lastActor = actor
	return s.created, s.err
}

type stubUsersService struct {
	user      *users.UserDTO
	list      []users.UserDTO
	err       error
	lastID    uuid.UUID
	lastRole  *enums.UserRole
	lastPhone string
	activated *bool
	deleted   bool
}

func (s *stubUsersService) Me(ctx context.Context, actor pkgAuth.Actor) (*users.UserDTO, error) {
	return s.user, s.err
}

func (s *stubUsersService) List(ctx context.Context, actor pkgAuth.Actor, role *enums.UserRole) ([]users.UserDTO, error) {
	s.lastRole = role
	return s.list, s.err
}

func (s *stubUsersService) Get(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID) (*users.UserDTO, error) {
	s.lastID = id
	return s.user, s.err
}

func (s *stubUsersService) Lookup(ctx context.Context, actor pkgAuth.Actor, phone, email string) (*users.UserDTO, error) {
	s.lastPhone = phone
	return s.user, s.err
}

func (s *stubUsersService) Activate(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID) (*users.UserDTO, error) {
	on := true
	s.activated = &on
	s.lastID = id
	return s.user, s.err
}

func (s *stubUsersService) Deactivate(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID) (*users.UserDTO, error) {
	off := false
	s.activated = &off
	s.lastID = id
	return s.user, s.err
}

func (s *stubUsersService) Delete(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID) error {
	s.deleted = true
	s.lastID = id
	return s.err
}

func withActor(r *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}
