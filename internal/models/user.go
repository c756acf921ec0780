package models

import "time"

// UserRole represents the role of a user in the system
type UserRole string

const (
	UserRoleBuyer     UserRole = "buyer"
	UserRoleOrganizer UserRole = "organizer"
	UserRoleOfficer   UserRole = "officer"
	UserRoleAdmin     UserRole = "admin"
)

// User is the identity handed to us by the auth collaborator. Only the
// fields issuance and verification need are kept here.
type User struct {
	ID        int       `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsValidRole reports whether role is one of the known roles
func IsValidRole(role UserRole) bool {
	switch role {
	case UserRoleBuyer, UserRoleOrganizer, UserRoleOfficer, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin returns true if the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// UserCreateRequest mirrors an identity provisioned by the auth service
type UserCreateRequest struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}

// Validate validates user creation data
func (req *UserCreateRequest) Validate() error {
	if req.Email == "" || len(req.Email) > 255 {
		return ErrValidation
	}
	if req.Role == "" {
		req.Role = UserRoleBuyer
	}
	if !IsValidRole(req.Role) {
		return ErrValidation
	}
	return nil
}
