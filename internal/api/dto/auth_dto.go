package dto

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/clientflow-auth/internal/domain"
	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores bytes past 72
)

var passwordRules = []validation.Rule{
	validation.Required,
	validation.Length(minPasswordLength, maxPasswordLength),
}

// RegisterRequest payload for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Normalize trims surrounding whitespace. Emails keep their case.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, passwordRules...),
		validation.Field(&r.Role, validation.In(roleValues()...)),
	)
}

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshTokenRequest carries the refresh token when no cookie is sent.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ForgotPasswordRequest payload for POST /auth/password/forgot.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetPasswordRequest payload for POST /auth/password/reset.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, passwordRules...),
	)
}

// TokenResponse is one issued token with its expiry.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponse is returned by login and refresh. The refresh token is also
// set as an HttpOnly cookie.
type AuthResponse struct {
	User    UserResponse   `json:"user"`
	Access  TokenResponse  `json:"access"`
	Refresh *TokenResponse `json:"refresh,omitempty"`
}

// NewAuthResponse maps a session to its wire form.
func NewAuthResponse(session *domain.Session) AuthResponse {
	resp := AuthResponse{
		User:   NewUserResponse(session.User),
		Access: TokenResponse{Token: session.Access.Token, ExpiresAt: session.Access.Expires},
	}
	if session.Refresh != nil {
		resp.Refresh = &TokenResponse{Token: session.Refresh.Token, ExpiresAt: session.Refresh.Expires}
	}
	return resp
}

// ValidationError converts ozzo field errors into a VALIDATION_FAILED error
// whose details map each field to its message.
func ValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for field, fe := range fieldErrs {
			details[field] = fe.Error()
		}
		return apperrors.NewValidationError("request validation failed", details)
	}
	return apperrors.NewValidationError(err.Error(), nil)
}

func roleValues() []interface{} {
	values := make([]interface{}, 0, len(domain.Roles))
	for _, role := range domain.Roles {
		values = append(values, string(role))
	}
	return values
}
