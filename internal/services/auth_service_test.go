package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/ports/memory"
)

type AuthServiceSuite struct {
	suite.Suite
	svc    *AuthService
	tokens *auth.TokenManager
}

func (s *AuthServiceSuite) SetupTest() {
	hash, err := auth.HashPassword("demo123")
	require.NoError(s.T(), err)
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(s.T(), err)
	s.tokens = tokens
	s.svc = NewAuthService(memory.New(memory.WithDemoPassword(hash)), tokens, nil)
}

func (s *AuthServiceSuite) TestDemoLogin() {
	resp, err := s.svc.Login(context.Background(), core.LoginRequest{Username: "demo", Password: "demo123"})
	s.Require().NoError(err)
	s.Equal(memory.DemoUserID, resp.UserID)
	s.Equal("demo@example.com", resp.Email)
	s.NotEmpty(resp.Token)

	u, err := s.svc.Authenticate(context.Background(), resp.Token)
	s.Require().NoError(err)
	s.Equal("demo", u.Username)
}

func (s *AuthServiceSuite) TestLoginRejectsBadCredentials() {
	_, err := s.svc.Login(context.Background(), core.LoginRequest{Username: "demo", Password: "wrong-pass"})
	s.ErrorIs(err, core.ErrUnauthorized)
	s.Equal("Invalid username or password", err.Error())

	_, err = s.svc.Login(context.Background(), core.LoginRequest{Username: "nobody", Password: "whatever"})
	s.ErrorIs(err, core.ErrUnauthorized)
}

func (s *AuthServiceSuite) TestLoginValidatesFirst() {
	_, err := s.svc.Login(context.Background(), core.LoginRequest{Username: "demo"})
	s.True(core.IsValidationError(err))
}

func (s *AuthServiceSuite) TestSignupThenLogin() {
	ctx := context.Background()
	resp, err := s.svc.Signup(ctx, core.SignupRequest{
		Username:        " alice ",
		Email:           "alice@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	s.Require().NoError(err)
	s.Equal("alice", resp.Username)
	s.Equal(memory.DemoUserID+1, resp.UserID)

	login, err := s.svc.Login(ctx, core.LoginRequest{Username: "alice", Password: "secret1"})
	s.Require().NoError(err)
	s.Equal(resp.UserID, login.UserID)
}

func (s *AuthServiceSuite) TestSignupConflict() {
	_, err := s.svc.Signup(context.Background(), core.SignupRequest{
		Username: "demo",
		Email:    "other@example.com",
		Password: "secret1",
	})
	s.ErrorIs(err, core.ErrConflict)
}

func (s *AuthServiceSuite) TestSignupValidation() {
	_, err := s.svc.Signup(context.Background(), core.SignupRequest{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret2",
	})
	s.ErrorIs(err, core.ErrPasswordMismatch)
}

func (s *AuthServiceSuite) TestAuthenticateRejectsForeignToken() {
	other, err := auth.NewTokenManager("another-secret", time.Hour)
	s.Require().NoError(err)
	token, err := other.Issue(memory.DemoUserID, "demo")
	s.Require().NoError(err)

	_, err = s.svc.Authenticate(context.Background(), token)
	s.ErrorIs(err, core.ErrUnauthorized)
}

func (s *AuthServiceSuite) TestAuthenticateUnknownUser() {
	token, err := s.tokens.Issue(404, "ghost")
	s.Require().NoError(err)

	_, err = s.svc.Authenticate(context.Background(), token)
	s.ErrorIs(err, core.ErrUnauthorized)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}
