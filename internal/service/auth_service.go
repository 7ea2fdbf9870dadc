package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/clientflow-auth/internal/auth"
	"github.com/spec-kit/clientflow-auth/internal/config"
	"github.com/spec-kit/clientflow-auth/internal/domain"
	"github.com/spec-kit/clientflow-auth/internal/events"
	"github.com/spec-kit/clientflow-auth/internal/observability"
	"github.com/spec-kit/clientflow-auth/internal/repository"
	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

// RegisterInput carries the fields needed to create a user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// AuthService coordinates registration, login and the token lifecycle.
type AuthService struct {
	users      repository.UserRepository
	tokens     repository.TokenRepository
	codec      *auth.TokenCodec
	verifier   *auth.CredentialVerifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	bcryptCost  int
	accessTTL   time.Duration
	refreshTTL  time.Duration
	resetTTL    time.Duration
	rotateOnUse bool
}

// AuthDependencies encapsulates collaborators for the auth service.
// Dispatcher, Logger, Metrics and Clock are optional.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	TokenRepo  repository.TokenRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.UserRepo,
		tokens:      deps.TokenRepo,
		codec:       auth.NewTokenCodec(cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret, auth.WithClock(now)),
		verifier:    auth.NewCredentialVerifier(deps.UserRepo),
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
		now:         now,
		bcryptCost:  cfg.Auth.BcryptCost,
		accessTTL:   cfg.Auth.AccessTokenTTL(),
		refreshTTL:  cfg.Auth.RefreshTokenTTL(),
		resetTTL:    cfg.Auth.PasswordResetTTL(),
		rotateOnUse: cfg.Auth.RotateRefreshTokens,
	}
}

// Register creates a user. The email pre-check only gives a friendly error;
// the store's unique constraint is the real guard and maps to the same kind.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleSalesRepresentative
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(in.Role)})
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.EmailAlreadyTaken(nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.PersistenceError(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.EmailAlreadyTaken(err)
		}
		return nil, apperrors.PersistenceError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user, events.UserRegisteredPayload{Name: user.Name, Role: user.Role}))
	return sanitize(user), nil
}

// Login verifies credentials and issues an access and a refresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.metrics.RecordAuthFailure("login", auth.Reason(err))
			s.logger.Warn("login failed", zap.String("email", email))
			return nil, apperrors.InvalidCredentials(err)
		}
		return nil, apperrors.PersistenceError(err)
	}

	access, err := s.issue(ctx, user, domain.TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(ctx, user, domain.TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("email", user.Email))
	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user, nil))
	return &domain.Session{User: sanitize(user), Access: access, Refresh: &refresh}, nil
}

// Refresh issues a new access token for a live refresh token. With rotation
// enabled it also replaces the refresh token and blacklists the old one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	record, user, err := s.verifyStored(ctx, refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodePersistence) {
			return nil, err
		}
		s.metrics.RecordAuthFailure("refresh", auth.Reason(err))
		s.logger.Warn("refresh rejected", zap.String("reason", auth.Reason(err)))
		return nil, apperrors.Unauthorized(err)
	}

	// With rotation the presented token is claimed before anything is
	// issued, so only one of several concurrent refreshes can win.
	if s.rotateOnUse {
		claimed, err := s.tokens.BlacklistIfLive(ctx, record.ID)
		if err != nil {
			return nil, apperrors.PersistenceError(err)
		}
		if !claimed {
			s.metrics.RecordAuthFailure("refresh", auth.Reason(auth.ErrTokenNotLive))
			s.logger.Warn("refresh rejected", zap.String("reason", auth.Reason(auth.ErrTokenNotLive)))
			return nil, apperrors.Unauthorized(auth.ErrTokenNotLive)
		}
	}

	access, err := s.issue(ctx, user, domain.TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	session := &domain.Session{User: sanitize(user), Access: access}

	if s.rotateOnUse {
		refresh, err := s.issue(ctx, user, domain.TokenTypeRefresh, s.refreshTTL)
		if err != nil {
			return nil, err
		}
		session.Refresh = &refresh
	}
	return session, nil
}

// Logout blacklists the refresh token. An unknown or already blacklisted
// token is treated as success.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	record, err := s.tokens.FindByValue(ctx, refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.PersistenceError(err)
	}
	if record.Blacklisted {
		return nil
	}
	if err := s.tokens.Blacklist(ctx, record.ID); err != nil {
		return apperrors.PersistenceError(err)
	}
	s.logger.Info("user logged out", zap.String("user_id", record.UserID))
	return nil
}

// RequestPasswordReset issues a reset token for the account owning email.
// It returns USER_NOT_FOUND for unknown or inactive accounts; the HTTP layer
// hides that from callers.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.IssuedToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("password reset requested for unknown email")
			return nil, apperrors.UserNotFound(auth.ErrUserNotFound)
		}
		return nil, apperrors.PersistenceError(err)
	}
	if !user.IsActive {
		return nil, apperrors.UserNotFound(auth.ErrUserInactive)
	}

	token, err := s.issue(ctx, user, domain.TokenTypeResetPassword, s.resetTTL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("password reset token issued", zap.String("user_id", user.ID))
	s.publish(ctx, events.NewEvent(events.EventPasswordResetRequested, user,
		events.PasswordResetRequestedPayload{Token: token.Token, Expires: token.Expires}))
	return &token, nil
}

// ResetPassword stores a new password for the owner of a live reset token,
// deletes all of the user's reset tokens and ends the user's other sessions.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	_, user, err := s.verifyStored(ctx, resetToken, domain.TokenTypeResetPassword)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodePersistence) {
			return err
		}
		s.metrics.RecordAuthFailure("reset_password", auth.Reason(err))
		return apperrors.InvalidOrExpiredResetToken(err)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.InvalidOrExpiredResetToken(auth.ErrUserNotFound)
		}
		return apperrors.PersistenceError(err)
	}
	if _, err := s.tokens.DeleteAllOfType(ctx, user.ID, domain.TokenTypeResetPassword); err != nil {
		return apperrors.PersistenceError(err)
	}
	revoked, err := s.tokens.BlacklistAllForUser(ctx, user.ID)
	if err != nil {
		return apperrors.PersistenceError(err)
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID), zap.Int64("sessions_revoked", revoked))
	s.publish(ctx, events.NewEvent(events.EventPasswordResetCompleted, user, nil))
	return nil
}

// CurrentUser returns the sanitized user with id.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitize(user), nil
}

// UpdateRole changes a user's role. Existing tokens keep their embedded
// role claim but the authenticator reads the stored role on every request.
func (s *AuthService) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.UserNotFound(err)
		}
		return nil, apperrors.PersistenceError(err)
	}
	s.logger.Info("user role updated", zap.String("user_id", id), zap.String("role", string(role)))
	return s.CurrentUser(ctx, id)
}

// SetActive enables or disables a user. Disabling also revokes its sessions.
func (s *AuthService) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	if err := s.users.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.UserNotFound(err)
		}
		return nil, apperrors.PersistenceError(err)
	}
	if !active {
		if _, err := s.RevokeSessions(ctx, id, "deactivated"); err != nil {
			return nil, err
		}
	}
	s.logger.Info("user status updated", zap.String("user_id", id), zap.Bool("active", active))
	return s.CurrentUser(ctx, id)
}

// RevokeSessions blacklists every live access and refresh token of a user.
func (s *AuthService) RevokeSessions(ctx context.Context, id, reason string) (int64, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return 0, err
	}
	revoked, err := s.tokens.BlacklistAllForUser(ctx, id)
	if err != nil {
		return 0, apperrors.PersistenceError(err)
	}
	s.logger.Info("sessions revoked", zap.String("user_id", id), zap.String("reason", reason), zap.Int64("revoked", revoked))
	s.publish(ctx, events.NewEvent(events.EventSessionsRevoked, user, events.SessionsRevokedPayload{Reason: reason, Revoked: revoked}))
	return revoked, nil
}

// TokenCodec exposes the codec for the request authenticator.
func (s *AuthService) TokenCodec() *auth.TokenCodec {
	return s.codec
}

// verifyStored checks signature, expiry and type of raw, that its row is
// still live, and that the owning user exists and is active. Failures carry
// the internal auth reason; store errors come back as PERSISTENCE_ERROR.
func (s *AuthService) verifyStored(ctx context.Context, raw string, tokenType domain.TokenType) (*domain.Token, *domain.User, error) {
	claims, err := s.codec.DecodeAs(raw, tokenType)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.tokens.FindLive(ctx, raw, tokenType, claims.SubjectID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, auth.ErrTokenNotLive
		}
		return nil, nil, apperrors.PersistenceError(err)
	}
	if record.Expired(s.now()) {
		return nil, nil, auth.ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, claims.SubjectID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, auth.ErrUserNotFound
		}
		return nil, nil, apperrors.PersistenceError(err)
	}
	if !user.IsActive {
		return nil, nil, auth.ErrUserInactive
	}
	return record, user, nil
}

func (s *AuthService) issue(ctx context.Context, user *domain.User, tokenType domain.TokenType, ttl time.Duration) (domain.IssuedToken, error) {
	expires := s.now().Add(ttl).Truncate(time.Second)
	encoded, err := s.codec.Encode(user.ID, user.Role, tokenType, expires)
	if err != nil {
		return domain.IssuedToken{}, apperrors.NewInternalError(err)
	}

	record := &domain.Token{
		Token:   encoded,
		UserID:  user.ID,
		Type:    tokenType,
		Expires: expires,
	}
	if err := s.tokens.Save(ctx, record); err != nil {
		return domain.IssuedToken{}, apperrors.PersistenceError(err)
	}
	return domain.IssuedToken{Token: encoded, Expires: expires}, nil
}

func (s *AuthService) getUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.UserNotFound(err)
		}
		return nil, apperrors.PersistenceError(err)
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func sanitize(user *domain.User) *domain.User {
	cp := *user
	cp.PasswordHash = ""
	return &cp
}
