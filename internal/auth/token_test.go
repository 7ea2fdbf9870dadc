package auth_test

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/clientflow-auth/internal/auth"
	"github.com/spec-kit/clientflow-auth/internal/domain"
)

const (
	accessSecret  = "access-secret-0123456789-abcdefghij"
	refreshSecret = "refresh-secret-0123456789-abcdefghij"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenCodecRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := auth.NewTokenCodec(accessSecret, refreshSecret, auth.WithClock(fixedClock(now)))

	for _, tokenType := range []domain.TokenType{domain.TokenTypeAccess, domain.TokenTypeRefresh, domain.TokenTypeResetPassword} {
		t.Run(string(tokenType), func(t *testing.T) {
			raw, err := codec.Encode("user-1", domain.RoleSalesManager, tokenType, now.Add(time.Hour))
			require.NoError(t, err)

			claims, err := codec.DecodeAs(raw, tokenType)
			require.NoError(t, err)
			require.Equal(t, "user-1", claims.SubjectID())
			require.Equal(t, tokenType, claims.Type)
			require.Equal(t, domain.RoleSalesManager, claims.Role)
			require.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
			require.Equal(t, now.Unix(), claims.IssuedAt.Unix())
			require.NotEmpty(t, claims.ID)
		})
	}
}

func TestTokenCodecUniquePerIssue(t *testing.T) {
	now := time.Now()
	codec := auth.NewTokenCodec(accessSecret, refreshSecret, auth.WithClock(fixedClock(now)))

	a, err := codec.Encode("user-1", domain.RoleAdministrator, domain.TokenTypeAccess, now.Add(time.Minute))
	require.NoError(t, err)
	b, err := codec.Encode("user-1", domain.RoleAdministrator, domain.TokenTypeAccess, now.Add(time.Minute))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestTokenCodecDifferentSecretFails(t *testing.T) {
	now := time.Now()
	issuer := auth.NewTokenCodec(accessSecret, refreshSecret, auth.WithClock(fixedClock(now)))
	other := auth.NewTokenCodec("another-access-secret-0123456789-xyz", "another-refresh-secret-0123456789-xyz", auth.WithClock(fixedClock(now)))

	raw, err := issuer.Encode("user-1", domain.RoleSalesRepresentative, domain.TokenTypeAccess, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = other.Decode(raw, domain.TokenTypeAccess)
	require.ErrorIs(t, err, auth.ErrSignatureInvalid)
}

func TestTokenCodecRefreshNotDecodableWithAccessSecret(t *testing.T) {
	now := time.Now()
	codec := auth.NewTokenCodec(accessSecret, refreshSecret, auth.WithClock(fixedClock(now)))

	refresh, err := codec.Encode("user-1", domain.RoleSalesRepresentative, domain.TokenTypeRefresh, now.Add(24*time.Hour))
	require.NoError(t, err)

	_, err = codec.Decode(refresh, domain.TokenTypeAccess)
	require.ErrorIs(t, err, auth.ErrSignatureInvalid)

	access, err := codec.Encode("user-1", domain.RoleSalesRepresentative, domain.TokenTypeAccess, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = codec.Decode(access, domain.TokenTypeRefresh)
	require.ErrorIs(t, err, auth.ErrSignatureInvalid)
}

func TestTokenCodecExpired(t *testing.T) {
	now := time.Now()
	codec := auth.NewTokenCodec(accessSecret, refreshSecret, auth.WithClock(fixedClock(now)))

	raw, err := codec.Encode("user-1", domain.RoleSalesRepresentative, domain.TokenTypeRefresh, now.Add(-time.Minute))
	require.NoError(t, err)

	_, err = codec.Decode(raw, domain.TokenTypeRefresh)
	require.ErrorIs(t, err, auth.ErrTokenExpired)

	// wrong secret does not hide expiry
	_, err = codec.Decode(raw, domain.TokenTypeAccess)
	require.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestTokenCodecExpiresAsClockAdvances(t *testing.T) {
	now := time.Now()
	clock := now
	codec := auth.NewTokenCodec(accessSecret, refreshSecret, auth.WithClock(func() time.Time { return clock }))

	raw, err := codec.Encode("user-1", domain.RoleSalesRepresentative, domain.TokenTypeAccess, now.Add(30*time.Minute))
	require.NoError(t, err)

	_, err = codec.Decode(raw, domain.TokenTypeAccess)
	require.NoError(t, err)

	clock = now.Add(31 * time.Minute)
	_, err = codec.Decode(raw, domain.TokenTypeAccess)
	require.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestTokenCodecWrongType(t *testing.T) {
	now := time.Now()
	codec := auth.NewTokenCodec(accessSecret, refreshSecret, auth.WithClock(fixedClock(now)))

	reset, err := codec.Encode("user-1", domain.RoleSalesRepresentative, domain.TokenTypeResetPassword, now.Add(10*time.Minute))
	require.NoError(t, err)

	_, err = codec.DecodeAs(reset, domain.TokenTypeAccess)
	require.ErrorIs(t, err, auth.ErrWrongTokenType)
}

func TestTokenCodecRejectsOtherAlgorithms(t *testing.T) {
	now := time.Now()
	codec := auth.NewTokenCodec(accessSecret, refreshSecret, auth.WithClock(fixedClock(now)))

	claims := &auth.Claims{
		Type: domain.TokenTypeAccess,
		Role: domain.RoleAdministrator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(accessSecret))
	require.NoError(t, err)

	_, err = codec.Decode(raw, domain.TokenTypeAccess)
	require.ErrorIs(t, err, auth.ErrSignatureInvalid)
}

func TestTokenCodecMalformed(t *testing.T) {
	codec := auth.NewTokenCodec(accessSecret, refreshSecret)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := codec.Decode(raw, domain.TokenTypeAccess)
		require.ErrorIs(t, err, auth.ErrSignatureInvalid, raw)
	}
}

func TestTokenCodecMissingSubject(t *testing.T) {
	now := time.Now()
	codec := auth.NewTokenCodec(accessSecret, refreshSecret, auth.WithClock(fixedClock(now)))

	raw, err := codec.Encode("", domain.RoleAdministrator, domain.TokenTypeAccess, now.Add(time.Hour))
	require.NoError(t, err)

	_, err = codec.Decode(raw, domain.TokenTypeAccess)
	require.ErrorIs(t, err, auth.ErrSignatureInvalid)
}
