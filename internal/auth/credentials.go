package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/clientflow-auth/internal/domain"
)

// UserLookup is the slice of the user store the verifier needs.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CredentialVerifier checks an email/password pair against stored hashes.
type CredentialVerifier struct {
	users UserLookup
}

// NewCredentialVerifier constructs a verifier.
func NewCredentialVerifier(users UserLookup) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

// Verify returns the user owning email when password matches its hash.
// Unknown email, wrong password and inactive account all yield
// ErrInvalidCredentials; store failures are returned as-is.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
