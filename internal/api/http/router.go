package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clientflow-auth/internal/api/http/handlers"
	"github.com/spec-kit/clientflow-auth/internal/auth"
	"github.com/spec-kit/clientflow-auth/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UsersHandler
	Authenticator *auth.Authenticator
	RateLimit     fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	limited := cfg.RateLimit
	if limited == nil {
		limited = func(c *fiber.Ctx) error { return c.Next() }
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", limited, cfg.Auth.Register)
	authGroup.Post("/login", limited, cfg.Auth.Login)
	authGroup.Post("/refresh-token", cfg.Auth.RefreshToken)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/password/forgot", limited, cfg.Auth.ForgotPassword)
	authGroup.Post("/password/reset", limited, cfg.Auth.ResetPassword)
	authGroup.Get("/me", cfg.Authenticator.Handle, auth.RequireAuthenticated(), cfg.Auth.Me)

	users := app.Group("/users", cfg.Authenticator.Handle)
	admin := auth.RequireRoles(domain.RoleAdministrator)
	users.Post("/", admin, cfg.Users.Create)
	users.Get("/:id", admin, cfg.Users.Get)
	users.Patch("/:id/role", admin, cfg.Users.UpdateRole)
	users.Patch("/:id/status", admin, cfg.Users.UpdateStatus)
	users.Post("/:id/sessions/revoke", auth.RequireRoles(domain.RoleAdministrator, domain.RoleSalesManager), cfg.Users.RevokeSessions)
}
