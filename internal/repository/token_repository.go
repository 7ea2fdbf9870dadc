package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/clientflow-auth/internal/domain"
)

// TokenRepository manages the durable record of issued tokens.
// Lookups that match nothing return pgx.ErrNoRows.
type TokenRepository interface {
	Save(ctx context.Context, token *domain.Token) error
	// FindLive returns the row only while it is not blacklisted. Expiry is
	// not checked here; callers compare against the decoded exp claim.
	FindLive(ctx context.Context, token string, tokenType domain.TokenType, userID string) (*domain.Token, error)
	FindByValue(ctx context.Context, token string, tokenType domain.TokenType) (*domain.Token, error)
	Blacklist(ctx context.Context, id string) error
	// BlacklistIfLive blacklists the row only if it is still live and reports
	// whether this call made the change. Concurrent callers see true once.
	BlacklistIfLive(ctx context.Context, id string) (bool, error)
	BlacklistAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteAllOfType(ctx context.Context, userID string, tokenType domain.TokenType) (int64, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type tokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository constructs repository.
func NewTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepository{pool: pool}
}

const tokenColumns = `id, token, user_id, type, expires, blacklisted, created_at`

func (r *tokenRepository) Save(ctx context.Context, token *domain.Token) error {
	const query = `
        INSERT INTO tokens (token, user_id, type, expires, blacklisted)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		token.Token,
		token.UserID,
		token.Type,
		token.Expires,
		token.Blacklisted,
	).Scan(&token.ID, &token.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateToken
	}
	return err
}

func (r *tokenRepository) FindLive(ctx context.Context, tokenStr string, tokenType domain.TokenType, userID string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + `
        FROM tokens WHERE token=$1 AND type=$2 AND user_id=$3 AND blacklisted=FALSE`
	return scanToken(r.pool.QueryRow(ctx, query, tokenStr, tokenType, userID))
}

func (r *tokenRepository) FindByValue(ctx context.Context, tokenStr string, tokenType domain.TokenType) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token=$1 AND type=$2`
	return scanToken(r.pool.QueryRow(ctx, query, tokenStr, tokenType))
}

// Blacklist flips the flag; repeating it on the same row is a no-op.
func (r *tokenRepository) Blacklist(ctx context.Context, id string) error {
	const query = `UPDATE tokens SET blacklisted=TRUE WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *tokenRepository) BlacklistIfLive(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE tokens SET blacklisted=TRUE WHERE id=$1 AND blacklisted=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *tokenRepository) BlacklistAllForUser(ctx context.Context, userID string) (int64, error) {
	const query = `
        UPDATE tokens SET blacklisted=TRUE
        WHERE user_id=$1 AND blacklisted=FALSE AND type IN ('ACCESS','REFRESH')`
	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *tokenRepository) DeleteAllOfType(ctx context.Context, userID string, tokenType domain.TokenType) (int64, error) {
	const query = `DELETE FROM tokens WHERE user_id=$1 AND type=$2`
	cmd, err := r.pool.Exec(ctx, query, userID, tokenType)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *tokenRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	const query = `
        DELETE FROM tokens
        WHERE expires < $1 OR (blacklisted=TRUE AND created_at < $1)`
	cmd, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*domain.Token, error) {
	var token domain.Token
	if err := row.Scan(
		&token.ID,
		&token.Token,
		&token.UserID,
		&token.Type,
		&token.Expires,
		&token.Blacklisted,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}
