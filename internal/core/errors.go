package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")

	ErrInvalidAmount    = NewValidationError("amount", "amount must be at least 0.01")
	ErrFutureDate       = NewValidationError("expenseDate", "expense date cannot be in the future")
	ErrEmptyDescription = NewValidationError("description", "description is required")
	ErrPasswordMismatch = NewValidationError("confirmPassword", "passwords do not match")
)

// ValidationError is a client-side rejection raised before any request is sent.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var ves *ValidationErrors
	return errors.As(err, &ves)
}

type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (ve *ValidationErrors) Unwrap() []error {
	return ve.Errors
}

func (ve *ValidationErrors) Add(err error) {
	ve.Errors = append(ve.Errors, err)
}

// ErrOrNil returns nil when nothing was collected, the single error when one
// was, and the whole list otherwise.
func (ve *ValidationErrors) ErrOrNil() error {
	switch len(ve.Errors) {
	case 0:
		return nil
	case 1:
		return ve.Errors[0]
	}
	return ve
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// WithMessage returns an error that reads as msg and matches kind under errors.Is.
func WithMessage(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// TransportError describes a failed call to the remote API. Message is the
// server-reported text and is meant to be shown to the user unchanged.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, http.StatusText(e.Status))
}

func (e *TransportError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	}
	return e.Err
}
