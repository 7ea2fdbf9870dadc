// Package bootstrap creates the default CRM accounts for development and e2e runs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/clientflow-auth/internal/config"
	"github.com/spec-kit/clientflow-auth/internal/domain"
	"github.com/spec-kit/clientflow-auth/internal/service"
	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

// UserRegistrar is the slice of the auth service the seeder needs.
type UserRegistrar interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
}

// UserFinder looks users up by exact email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type seedUser struct {
	email    string
	name     string
	role     domain.Role
	password string
}

func seedUsers(cfg config.SeedConfig) []seedUser {
	return []seedUser{
		{email: "admin@clientflow.com", name: "Admin User", role: domain.RoleAdministrator, password: cfg.AdminPassword},
		{email: "manager@clientflow.com", name: "Sales Manager Sarah", role: domain.RoleSalesManager, password: cfg.ManagerPassword},
		{email: "rep@clientflow.com", name: "Sales Rep John", role: domain.RoleSalesRepresentative, password: cfg.RepPassword},
	}
}

// EnsureUsers creates any missing seed user. Existing accounts are not touched.
func EnsureUsers(ctx context.Context, cfg config.SeedConfig, users UserFinder, registrar UserRegistrar, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	for _, su := range seedUsers(cfg) {
		if _, err := users.GetByEmail(ctx, su.email); err == nil {
			continue
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("seed lookup %s: %w", su.email, err)
		}

		created, err := registrar.Register(ctx, service.RegisterInput{
			Email:    su.email,
			Password: su.password,
			Name:     su.name,
			Role:     su.role,
		})
		if err != nil {
			// lost a race with another instance seeding the same account
			if apperrors.HasCode(err, apperrors.CodeEmailAlreadyTaken) {
				continue
			}
			return fmt.Errorf("seed create %s: %w", su.email, err)
		}

		if logger != nil {
			logger.Info("seed user created",
				zap.String("email", created.Email),
				zap.String("role", string(created.Role)),
				zap.String("user_id", created.ID),
			)
		}
	}
	return nil
}
