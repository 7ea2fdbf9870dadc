package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/clientflow-auth/internal/domain"
	"github.com/spec-kit/clientflow-auth/internal/repository"
)

// TokenRepository stores issued tokens keyed by id with a unique index on the token string.
type TokenRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Token
	byValue map[string]string
}

// NewTokenRepository returns an empty store.
func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		byID:    make(map[string]*domain.Token),
		byValue: make(map[string]string),
	}
}

var _ repository.TokenRepository = (*TokenRepository)(nil)

func (r *TokenRepository) Save(_ context.Context, token *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byValue[token.Token]; exists {
		return repository.ErrDuplicateToken
	}
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()

	stored := *token
	r.byID[stored.ID] = &stored
	r.byValue[stored.Token] = stored.ID
	return nil
}

func (r *TokenRepository) FindLive(_ context.Context, tokenStr string, tokenType domain.TokenType, userID string) (*domain.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.lookup(tokenStr, tokenType)
	if !ok || token.UserID != userID || token.Blacklisted {
		return nil, pgx.ErrNoRows
	}
	cp := *token
	return &cp, nil
}

func (r *TokenRepository) FindByValue(_ context.Context, tokenStr string, tokenType domain.TokenType) (*domain.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.lookup(tokenStr, tokenType)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *token
	return &cp, nil
}

func (r *TokenRepository) Blacklist(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token, ok := r.byID[id]; ok {
		token.Blacklisted = true
	}
	return nil
}

func (r *TokenRepository) BlacklistIfLive(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.byID[id]
	if !ok || token.Blacklisted {
		return false, nil
	}
	token.Blacklisted = true
	return true, nil
}

func (r *TokenRepository) BlacklistAllForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, token := range r.byID {
		if token.UserID != userID || token.Blacklisted || token.Type == domain.TokenTypeResetPassword {
			continue
		}
		token.Blacklisted = true
		n++
	}
	return n, nil
}

func (r *TokenRepository) DeleteAllOfType(_ context.Context, userID string, tokenType domain.TokenType) (int64, error) {
	return r.deleteWhere(func(t *domain.Token) bool {
		return t.UserID == userID && t.Type == tokenType
	}), nil
}

func (r *TokenRepository) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	return r.deleteWhere(func(t *domain.Token) bool {
		return t.Expires.Before(before) || (t.Blacklisted && t.CreatedAt.Before(before))
	}), nil
}

// Len returns the number of stored rows.
func (r *TokenRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// CountLive returns the number of non-blacklisted rows of tokenType owned by userID.
func (r *TokenRepository) CountLive(userID string, tokenType domain.TokenType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, token := range r.byID {
		if token.UserID == userID && token.Type == tokenType && !token.Blacklisted {
			n++
		}
	}
	return n
}

func (r *TokenRepository) lookup(tokenStr string, tokenType domain.TokenType) (*domain.Token, bool) {
	id, ok := r.byValue[tokenStr]
	if !ok {
		return nil, false
	}
	token := r.byID[id]
	if token.Type != tokenType {
		return nil, false
	}
	return token, true
}

func (r *TokenRepository) deleteWhere(match func(*domain.Token) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, token := range r.byID {
		if !match(token) {
			continue
		}
		delete(r.byValue, token.Token)
		delete(r.byID, id)
		n++
	}
	return n
}
