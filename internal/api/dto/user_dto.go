package dto

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/spec-kit/clientflow-auth/internal/domain"
)

// UserResponse is the public view of a user; the password hash never leaves the service.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// UpdateRoleRequest payload for PATCH /users/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

func (r *UpdateRoleRequest) Normalize() {
	r.Role = strings.TrimSpace(r.Role)
}

func (r UpdateRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In(roleValues()...)),
	)
}

// UpdateStatusRequest payload for PATCH /users/:id/status.
type UpdateStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IsActive, validation.NotNil),
	)
}

// RevokeSessionsRequest optionally records why sessions were ended.
type RevokeSessionsRequest struct {
	Reason string `json:"reason"`
}

func (r RevokeSessionsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason, validation.Length(0, 200)),
	)
}

// RevokeSessionsResponse reports how many tokens were blacklisted.
type RevokeSessionsResponse struct {
	UserID  string `json:"userId"`
	Revoked int64  `json:"revoked"`
}
