package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/clientflow-auth/internal/domain"
)

// TokenCodec signs and verifies JWTs. Refresh tokens use their own secret so
// a leaked access secret cannot mint refresh tokens; reset-password tokens
// share the access secret and are told apart by their type claim.
type TokenCodec struct {
	secrets map[domain.TokenType][]byte
	now     func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for iat and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec builds a codec from the access and refresh secrets.
func NewTokenCodec(accessSecret, refreshSecret string, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		secrets: map[domain.TokenType][]byte{
			domain.TokenTypeAccess:        []byte(accessSecret),
			domain.TokenTypeResetPassword: []byte(accessSecret),
			domain.TokenTypeRefresh:       []byte(refreshSecret),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Claims describes JWT payload.
type Claims struct {
	Type domain.TokenType `json:"type"`
	Role domain.Role      `json:"role"`
	jwt.RegisteredClaims
}

// SubjectID returns the user id the token asserts.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// Encode builds and signs a token of tokenType for the subject.
func (c *TokenCodec) Encode(subjectID string, role domain.Role, tokenType domain.TokenType, expiresAt time.Time) (string, error) {
	secret, err := c.secretFor(tokenType)
	if err != nil {
		return "", err
	}
	claims := &Claims{
		Type: tokenType,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(c.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Decode verifies tokenStr with the secret belonging to tokenType.
// It fails with ErrTokenExpired once exp has elapsed (also when the
// signature does not verify) and with ErrSignatureInvalid otherwise.
func (c *TokenCodec) Decode(tokenStr string, tokenType domain.TokenType) (*Claims, error) {
	secret, err := c.secretFor(tokenType)
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || c.expiredUnverified(tokenStr) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrSignatureInvalid
	}
	return claims, nil
}

// DecodeAs decodes tokenStr and additionally requires its type claim to be tokenType.
func (c *TokenCodec) DecodeAs(tokenStr string, tokenType domain.TokenType) (*Claims, error) {
	claims, err := c.Decode(tokenStr, tokenType)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (c *TokenCodec) expiredUnverified(tokenStr string) bool {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(c.now())
}

func (c *TokenCodec) secretFor(tokenType domain.TokenType) ([]byte, error) {
	secret, ok := c.secrets[tokenType]
	if !ok || len(secret) == 0 {
		return nil, fmt.Errorf("no signing secret for token type %q", tokenType)
	}
	return secret, nil
}
