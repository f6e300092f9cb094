package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

var (
	errBadCredentials = core.WithMessage(core.ErrUnauthorized, "Invalid username or password")
	errUserExists     = core.WithMessage(core.ErrConflict, "Username or email is already registered")
	errSessionExpired = core.WithMessage(core.ErrUnauthorized, "Session expired, please log in again")
)

// AuthService authenticates against a local UserRepository. It backs the
// API server and the memory and sqlite client modes.
type AuthService struct {
	users  ports.UserRepository
	tokens *auth.TokenManager
	logger *log.Logger
}

func NewAuthService(users ports.UserRepository, tokens *auth.TokenManager, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Nop()
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger.WithComponent(log.ComponentAuth),
	}
}

func (s *AuthService) Signup(ctx context.Context, req core.SignupRequest) (core.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return core.AuthResponse{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return core.AuthResponse{}, err
	}
	u, err := s.users.CreateUser(ctx, req.Username, req.Email, hash)
	if errors.Is(err, core.ErrConflict) {
		return core.AuthResponse{}, errUserExists
	}
	if err != nil {
		return core.AuthResponse{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User signed up", log.FieldUserID, u.UserID, log.FieldOperation, log.OpSignup)
	return s.respond(u)
}

func (s *AuthService) Login(ctx context.Context, req core.LoginRequest) (core.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return core.AuthResponse{}, err
	}
	u, hash, err := s.users.UserByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, core.ErrNotFound) {
		return core.AuthResponse{}, errBadCredentials
	}
	if err != nil {
		return core.AuthResponse{}, fmt.Errorf("load user: %w", err)
	}
	if err := auth.CheckPassword(hash, req.Password); err != nil {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldUserID, u.UserID, log.FieldOperation, log.OpLogin)
		return core.AuthResponse{}, errBadCredentials
	}
	return s.respond(u)
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (core.User, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return core.User{}, errSessionExpired
	}
	u, err := s.users.UserByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, errSessionExpired
	}
	return u, err
}

func (s *AuthService) respond(u core.User) (core.AuthResponse, error) {
	token, err := s.tokens.Issue(u.UserID, u.Username)
	if err != nil {
		return core.AuthResponse{}, err
	}
	return core.AuthResponse{
		Token:     token,
		UserID:    u.UserID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}, nil
}
