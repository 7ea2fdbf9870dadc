package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes returned to API callers.
const (
	CodeValidationFailed           = "VALIDATION_FAILED"
	CodeNotFound                   = "NOT_FOUND"
	CodeUnauthorized               = "UNAUTHORIZED"
	CodeForbidden                  = "FORBIDDEN"
	CodeConflict                   = "CONFLICT"
	CodeInvalidCredentials         = "INVALID_CREDENTIALS"
	CodeEmailAlreadyTaken          = "EMAIL_ALREADY_TAKEN"
	CodeUserNotFound               = "USER_NOT_FOUND"
	CodeInvalidOrExpiredResetToken = "INVALID_OR_EXPIRED_RESET_TOKEN"
	CodePersistence                = "PERSISTENCE_ERROR"
	CodeRateLimited                = "RATE_LIMITED"
	CodeInternal                   = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code, so callers can compare against
// a freshly built kind without caring about the wrapped cause.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// Wrap returns a copy of the error carrying cause as the underlying reason.
func (e *DomainError) Wrap(cause error) *DomainError {
	cp := *e
	cp.Err = cause
	return &cp
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewRateLimited(retryAfterSeconds int) error {
	return NewDomainError(CodeRateLimited, "too many requests, please try again later", http.StatusTooManyRequests,
		map[string]any{"retry_after": retryAfterSeconds})
}

// Unauthorized is the single outcome every token failure collapses to.
func Unauthorized(cause error) error {
	return NewDomainError(CodeUnauthorized, "please authenticate", http.StatusUnauthorized, nil).Wrap(cause)
}

// InvalidCredentials does not reveal whether the email or password was wrong.
func InvalidCredentials(cause error) error {
	return NewDomainError(CodeInvalidCredentials, "incorrect email or password", http.StatusUnauthorized, nil).Wrap(cause)
}

func EmailAlreadyTaken(cause error) error {
	return NewDomainError(CodeEmailAlreadyTaken, "email already taken", http.StatusConflict, nil).Wrap(cause)
}

func UserNotFound(cause error) error {
	return NewDomainError(CodeUserNotFound, "user not found", http.StatusNotFound, nil).Wrap(cause)
}

func InvalidOrExpiredResetToken(cause error) error {
	return NewDomainError(CodeInvalidOrExpiredResetToken, "password reset token is invalid or has expired",
		http.StatusBadRequest, nil).Wrap(cause)
}

func Forbidden() error {
	return NewForbidden("you do not have permission to perform this action")
}

func PersistenceError(cause error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        cause,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
