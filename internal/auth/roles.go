package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clientflow-auth/internal/domain"
	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

// Authorize fails with FORBIDDEN unless identity holds one of allowed.
// A nil identity is UNAUTHORIZED; an empty allowed set admits any caller.
func Authorize(identity *Identity, allowed ...domain.Role) error {
	if identity == nil {
		return apperrors.Unauthorized(nil)
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if identity.Role == role {
			return nil
		}
	}
	return apperrors.Forbidden()
}

// RequireRoles ensures the authenticated caller has one of the allowed roles.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, _ := IdentityFromContext(c)
		if err := Authorize(identity, allowed...); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a caller identity is present.
func RequireAuthenticated() fiber.Handler {
	return RequireRoles()
}
