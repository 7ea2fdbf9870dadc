package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/clientflow-auth/internal/domain"
	"github.com/spec-kit/clientflow-auth/internal/observability"
	"github.com/spec-kit/clientflow-auth/internal/repository"
	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// Identity is the minimal caller description attached to a request.
// Role comes from storage; TokenRole is the claim embedded at issue time.
type Identity struct {
	ID        string
	Email     string
	Role      domain.Role
	TokenRole domain.Role
}

// Authenticator validates bearer access tokens against their signature and
// their live record in the token store, then reloads the owning user.
type Authenticator struct {
	codec   *TokenCodec
	tokens  repository.TokenRepository
	users   repository.UserRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAuthenticator constructs the authenticator. logger and metrics may be nil.
func NewAuthenticator(codec *TokenCodec, tokens repository.TokenRepository, users repository.UserRepository, logger *zap.Logger, metrics *observability.Metrics) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{codec: codec, tokens: tokens, users: users, logger: logger, metrics: metrics}
}

// Authenticate resolves a raw access token to an identity. Every token or
// account problem is returned as the same UNAUTHORIZED error; the specific
// reason is only logged and counted.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*Identity, error) {
	identity, err := a.authenticate(ctx, raw)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodePersistence) {
			return nil, err
		}
		reason := Reason(err)
		a.metrics.RecordAuthFailure("authenticate", reason)
		a.logger.Debug("access token rejected", zap.String("reason", reason))
		return nil, apperrors.Unauthorized(err)
	}
	return identity, nil
}

func (a *Authenticator) authenticate(ctx context.Context, raw string) (*Identity, error) {
	claims, err := a.codec.Decode(raw, domain.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if claims.Type != domain.TokenTypeAccess {
		return nil, ErrWrongTokenType
	}

	if _, err := a.tokens.FindLive(ctx, raw, domain.TokenTypeAccess, claims.SubjectID()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotLive
		}
		return nil, apperrors.PersistenceError(err)
	}

	user, err := a.users.GetByID(ctx, claims.SubjectID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.PersistenceError(err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return &Identity{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenRole: claims.Role,
	}, nil
}

// Handle enforces authentication for protected routes.
func (a *Authenticator) Handle(c *fiber.Ctx) error {
	raw, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		a.metrics.RecordAuthFailure("authenticate", "missing_token")
		return apperrors.Unauthorized(nil)
	}

	identity, err := a.Authenticate(c.UserContext(), raw)
	if err != nil {
		return err
	}
	if identity.TokenRole != identity.Role {
		a.logger.Debug("token role differs from stored role",
			zap.String("user_id", identity.ID),
			zap.String("token_role", string(identity.TokenRole)),
			zap.String("role", string(identity.Role)))
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok
}
