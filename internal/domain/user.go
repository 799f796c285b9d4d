package domain

import "time"

// Role enumerates the fixed set of account roles.
type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RolePresident     Role = "PRESIDENT"
	RoleVicePresident Role = "VICE_PRESIDENT"
	RoleMember        Role = "MEMBER"
)

// DefaultRole is assigned when registration does not name one.
const DefaultRole = RoleVicePresident

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePresident, RoleVicePresident, RoleMember:
		return true
	}
	return false
}

// Assignable reports whether r may be chosen at self-registration.
// Administrative roles are granted out of band only.
func (r Role) Assignable() bool {
	return r == RoleVicePresident || r == RoleMember
}

// User is the persisted account record.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection of User safe to return to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public strips credentials from the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
