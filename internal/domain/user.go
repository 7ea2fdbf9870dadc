package domain

import "time"

// Role is the closed set of CRM user roles.
type Role string

const (
	RoleAdministrator       Role = "ADMINISTRATOR"
	RoleSalesManager        Role = "SALES_MANAGER"
	RoleSalesRepresentative Role = "SALES_REPRESENTATIVE"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdministrator, RoleSalesManager, RoleSalesRepresentative}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is the identity record for CRM staff.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
