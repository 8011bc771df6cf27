package identity

import "time"

// Role is a platform-wide account role. Authorization is decided by exact
// membership in a route's allowed set; there is no role hierarchy.
type Role string

const (
	RoleAdminSystem Role = "ADMIN_SYSTEM"
	RoleAdminSchool Role = "ADMIN_SCHOOL"
	RoleTeacher     Role = "TEACHER"
	RoleStudent     Role = "STUDENT"
	RoleParent      Role = "PARENT"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdminSystem, RoleAdminSchool, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusPending   Status = "PENDING"
)

// Identity represents a user account as seen by the auth core. It is read
// on login and refresh and never mutated here; provisioning lives elsewhere.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Status       Status
	SchoolID     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the account may authenticate.
func (i *Identity) IsActive() bool {
	return i != nil && i.Status == StatusActive
}
