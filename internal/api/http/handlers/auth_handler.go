package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/clientflow-auth/internal/api/dto"
	"github.com/spec-kit/clientflow-auth/internal/auth"
	"github.com/spec-kit/clientflow-auth/internal/domain"
	"github.com/spec-kit/clientflow-auth/internal/service"
	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

const forgotPasswordMessage = "if an account exists for that email, a reset link has been sent"

// RefreshCookie describes how the refresh token cookie is written.
type RefreshCookie struct {
	Name   string
	Path   string
	Secure bool
}

// AuthHandler exposes the session lifecycle endpoints under /auth.
type AuthHandler struct {
	auth   *service.AuthService
	cookie RefreshCookie
	logger *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookie RefreshCookie, logger *zap.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "refreshToken"
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: authService, cookie: cookie, logger: logger}
}

// Register handles POST /auth/register. Self-registration only creates
// sales representatives; administrators create other roles via POST /users.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return dto.ValidationError(err)
	}
	if req.Role != "" && domain.Role(req.Role) != domain.RoleSalesRepresentative {
		return apperrors.Forbidden()
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return dto.ValidationError(err)
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, session.Refresh)
	return c.JSON(fiber.Map{"data": dto.NewAuthResponse(session)})
}

// RefreshToken handles POST /auth/refresh-token. The refresh token is read
// from the cookie first and the JSON body second.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	token := h.refreshTokenFrom(c)
	if token == "" {
		return apperrors.Unauthorized(nil)
	}

	session, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		return err
	}

	if session.Refresh != nil {
		h.setRefreshCookie(c, session.Refresh)
	}
	return c.JSON(fiber.Map{"data": dto.NewAuthResponse(session)})
}

// Logout handles POST /auth/logout. It always clears the cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := h.refreshTokenFrom(c); token != "" {
		if err := h.auth.Logout(c.UserContext(), token); err != nil {
			return err
		}
	}

	h.clearRefreshCookie(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "logged out"}})
}

// ForgotPassword handles POST /auth/password/forgot. The response is the
// same whether or not the email belongs to an account.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return dto.ValidationError(err)
	}

	if _, err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		if !apperrors.HasCode(err, apperrors.CodeUserNotFound) {
			return err
		}
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"message": forgotPasswordMessage}})
}

// ResetPassword handles POST /auth/password/reset.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return dto.ValidationError(err)
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}

	h.clearRefreshCookie(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password has been reset"}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.Unauthorized(nil)
	}

	user, err := h.auth.CurrentUser(c.UserContext(), identity.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func (h *AuthHandler) refreshTokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies(h.cookie.Name); token != "" {
		return token
	}
	var req dto.RefreshTokenRequest
	if len(c.Body()) == 0 {
		return ""
	}
	if err := c.BodyParser(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token *domain.IssuedToken) {
	if token == nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token.Token,
		Path:     h.cookie.Path,
		Expires:  token.Expires,
		MaxAge:   int(time.Until(token.Expires).Seconds()),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
