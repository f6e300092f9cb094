package core

import (
	"strings"

	"github.com/badoux/checkmail"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

type (
	SignupRequest struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"-"`
	}

	LoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
)

// Validate rejects a signup before it reaches the server. ConfirmPassword is
// only checked when set, so server-side callers can skip it.
func (r SignupRequest) Validate() error {
	var errs ValidationErrors
	if len(strings.TrimSpace(r.Username)) < minUsernameLen {
		errs.Add(NewValidationError("username", "username must be at least 3 characters"))
	}
	if strings.TrimSpace(r.Email) == "" {
		errs.Add(NewValidationError("email", "email is required"))
	} else if err := checkmail.ValidateFormat(r.Email); err != nil {
		errs.Add(NewValidationError("email", "email is not valid"))
	}
	if len(r.Password) < minPasswordLen {
		errs.Add(NewValidationError("password", "password must be at least 6 characters"))
	}
	if r.ConfirmPassword != "" && r.ConfirmPassword != r.Password {
		errs.Add(ErrPasswordMismatch)
	}
	return errs.ErrOrNil()
}

func (r LoginRequest) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(r.Username) == "" {
		errs.Add(NewValidationError("username", "username is required"))
	}
	if r.Password == "" {
		errs.Add(NewValidationError("password", "password is required"))
	}
	return errs.ErrOrNil()
}
