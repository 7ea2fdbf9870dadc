package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/clientflow-auth/internal/api/dto"
	"github.com/spec-kit/clientflow-auth/internal/auth"
	"github.com/spec-kit/clientflow-auth/internal/domain"
	"github.com/spec-kit/clientflow-auth/internal/service"
	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

// UsersHandler exposes administrative user management.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Create handles POST /users. Unlike self-registration any role may be assigned.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return dto.ValidationError(err)
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

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}
	user, err := h.auth.CurrentUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateRole handles PATCH /users/:id/role.
func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return dto.ValidationError(err)
	}

	user, err := h.auth.UpdateRole(c.UserContext(), id, domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateStatus handles PATCH /users/:id/status. Administrators cannot
// deactivate themselves.
func (h *UsersHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return dto.ValidationError(err)
	}

	if identity, ok := auth.IdentityFromContext(c); ok && identity.ID == id && !*req.IsActive {
		return apperrors.NewConflict("cannot deactivate your own account", nil)
	}

	user, err := h.auth.SetActive(c.UserContext(), id, *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// RevokeSessions handles POST /users/:id/sessions/revoke. Sales managers
// may not revoke the sessions of an administrator.
func (h *UsersHandler) RevokeSessions(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req dto.RevokeSessionsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if err := req.Validate(); err != nil {
		return dto.ValidationError(err)
	}
	reason := req.Reason
	if reason == "" {
		reason = "admin_revoked"
	}

	if identity, ok := auth.IdentityFromContext(c); !ok || identity.Role != domain.RoleAdministrator {
		target, err := h.auth.CurrentUser(c.UserContext(), id)
		if err != nil {
			return err
		}
		if target.Role == domain.RoleAdministrator {
			return apperrors.Forbidden()
		}
	}

	revoked, err := h.auth.RevokeSessions(c.UserContext(), id, reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RevokeSessionsResponse{UserID: id, Revoked: revoked}})
}

// userIDParam returns the :id path parameter. Anything that is not a UUID
// cannot name a user, so it is reported as USER_NOT_FOUND before any lookup.
func userIDParam(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.UserNotFound(nil)
	}
	return id, nil
}
