package auth

import "errors"

// Internal failure reasons. They are logged and counted but callers outside
// the service only ever see the collapsed DomainError kinds.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSignatureInvalid   = errors.New("token signature invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrTokenNotLive       = errors.New("token not live")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user inactive")
)

// Reason returns a short label for metrics and logs.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrWrongTokenType):
		return "wrong_token_type"
	case errors.Is(err, ErrTokenNotLive):
		return "token_not_live"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrUserInactive):
		return "user_inactive"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "other"
	}
}
