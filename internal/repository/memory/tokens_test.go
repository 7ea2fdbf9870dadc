package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/clientflow-auth/internal/domain"
	"github.com/spec-kit/clientflow-auth/internal/repository"
)

func saveToken(t *testing.T, repo *TokenRepository, value, userID string, tokenType domain.TokenType, expires time.Time) *domain.Token {
	t.Helper()
	token := &domain.Token{Token: value, UserID: userID, Type: tokenType, Expires: expires}
	require.NoError(t, repo.Save(context.Background(), token))
	require.NotEmpty(t, token.ID)
	return token
}

func TestTokenSaveRejectsDuplicates(t *testing.T) {
	repo := NewTokenRepository()
	saveToken(t, repo, "tok-1", "u1", domain.TokenTypeAccess, time.Now().Add(time.Hour))

	err := repo.Save(context.Background(), &domain.Token{Token: "tok-1", UserID: "u2", Type: domain.TokenTypeAccess})
	require.ErrorIs(t, err, repository.ErrDuplicateToken)
	require.Equal(t, 1, repo.Len())
}

func TestTokenFindLive(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository()
	tok := saveToken(t, repo, "tok-1", "u1", domain.TokenTypeRefresh, time.Now().Add(time.Hour))

	got, err := repo.FindLive(ctx, "tok-1", domain.TokenTypeRefresh, "u1")
	require.NoError(t, err)
	require.Equal(t, tok.ID, got.ID)

	_, err = repo.FindLive(ctx, "tok-1", domain.TokenTypeAccess, "u1")
	require.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = repo.FindLive(ctx, "tok-1", domain.TokenTypeRefresh, "u2")
	require.ErrorIs(t, err, pgx.ErrNoRows)

	require.NoError(t, repo.Blacklist(ctx, tok.ID))
	_, err = repo.FindLive(ctx, "tok-1", domain.TokenTypeRefresh, "u1")
	require.ErrorIs(t, err, pgx.ErrNoRows)

	found, err := repo.FindByValue(ctx, "tok-1", domain.TokenTypeRefresh)
	require.NoError(t, err)
	require.True(t, found.Blacklisted)
}

func TestTokenBlacklistIdempotentUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository()
	tok := saveToken(t, repo, "tok-1", "u1", domain.TokenTypeRefresh, time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Blacklist(ctx, tok.ID)
		}()
	}
	wg.Wait()

	require.NoError(t, repo.Blacklist(ctx, tok.ID))
	require.NoError(t, repo.Blacklist(ctx, "unknown-id"))
	require.Equal(t, 0, repo.CountLive("u1", domain.TokenTypeRefresh))
}

func TestTokenBlacklistIfLiveClaimsOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository()
	tok := saveToken(t, repo, "tok-1", "u1", domain.TokenTypeRefresh, time.Now().Add(time.Hour))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		claims int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.BlacklistIfLive(ctx, tok.ID)
			if err == nil && ok {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, claims)
	ok, err := repo.BlacklistIfLive(ctx, "unknown-id")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTokenBlacklistAllForUserSkipsResetTokens(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository()
	exp := time.Now().Add(time.Hour)
	saveToken(t, repo, "a1", "u1", domain.TokenTypeAccess, exp)
	saveToken(t, repo, "r1", "u1", domain.TokenTypeRefresh, exp)
	saveToken(t, repo, "p1", "u1", domain.TokenTypeResetPassword, exp)
	saveToken(t, repo, "a2", "u2", domain.TokenTypeAccess, exp)

	n, err := repo.BlacklistAllForUser(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = repo.BlacklistAllForUser(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, n)

	require.Equal(t, 1, repo.CountLive("u1", domain.TokenTypeResetPassword))
	require.Equal(t, 1, repo.CountLive("u2", domain.TokenTypeAccess))
}

func TestTokenDeleteAllOfType(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository()
	exp := time.Now().Add(time.Hour)
	saveToken(t, repo, "p1", "u1", domain.TokenTypeResetPassword, exp)
	saveToken(t, repo, "p2", "u1", domain.TokenTypeResetPassword, exp)
	saveToken(t, repo, "r1", "u1", domain.TokenTypeRefresh, exp)
	saveToken(t, repo, "p3", "u2", domain.TokenTypeResetPassword, exp)

	n, err := repo.DeleteAllOfType(ctx, "u1", domain.TokenTypeResetPassword)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	require.Equal(t, 0, repo.CountLive("u1", domain.TokenTypeResetPassword))
	require.Equal(t, 1, repo.CountLive("u1", domain.TokenTypeRefresh))
	require.Equal(t, 1, repo.CountLive("u2", domain.TokenTypeResetPassword))

	_, err = repo.FindByValue(ctx, "p1", domain.TokenTypeResetPassword)
	require.ErrorIs(t, err, pgx.ErrNoRows)

	// the value is free again once deleted
	saveToken(t, repo, "p1", "u1", domain.TokenTypeResetPassword, exp)
}

func TestTokenDeleteStale(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository()
	now := time.Now()
	saveToken(t, repo, "expired", "u1", domain.TokenTypeAccess, now.Add(-48*time.Hour))
	saveToken(t, repo, "live", "u1", domain.TokenTypeRefresh, now.Add(48*time.Hour))
	revoked := saveToken(t, repo, "revoked", "u1", domain.TokenTypeRefresh, now.Add(48*time.Hour))
	require.NoError(t, repo.Blacklist(ctx, revoked.ID))

	cutoff := now.Add(-24 * time.Hour)
	n, err := repo.DeleteStale(ctx, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, 2, repo.Len())

	// a blacklisted row goes once it was created before the cutoff
	n, err = repo.DeleteStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, 1, repo.Len())
}
