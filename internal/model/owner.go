package model

import "time"

// Role is the privilege level of an owner.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Owner is the account that documents belong to. Identity and credentials are
// managed elsewhere; only the role and the soft-delete flag are tracked here.
type Owner struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the verified caller of an operation.
type Principal struct {
	OwnerID string
	Role    Role
}

// IsAdmin reports whether the principal holds the elevated role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
