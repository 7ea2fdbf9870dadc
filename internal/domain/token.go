package domain

import "time"

// TokenType tags what an issued token may be used for.
type TokenType string

const (
	TokenTypeAccess        TokenType = "ACCESS"
	TokenTypeRefresh       TokenType = "REFRESH"
	TokenTypeResetPassword TokenType = "RESET_PASSWORD"
)

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	switch t {
	case TokenTypeAccess, TokenTypeRefresh, TokenTypeResetPassword:
		return true
	}
	return false
}

// Token is the stored record of an issued token.
type Token struct {
	ID          string
	Token       string
	UserID      string
	Type        TokenType
	Expires     time.Time
	Blacklisted bool
	CreatedAt   time.Time
}

// Expired reports whether the token's lifetime has elapsed at now.
func (t *Token) Expired(now time.Time) bool {
	return !t.Expires.After(now)
}
