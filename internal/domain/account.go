package domain

import "strings"

// Role is the closed set of account roles. Roles are normalized once at
// account creation and never change afterwards; comparisons are plain ==.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleSeller  Role = "seller"
	RoleAdmin   Role = "admin"
	RoleExpert  Role = "expert"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
)

// ParseRole canonicalizes a raw role string. Returns false for anything
// outside the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleBuyer:
		return RoleBuyer, true
	case RoleSeller:
		return RoleSeller, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleExpert:
		return RoleExpert, true
	case RoleManager:
		return RoleManager, true
	case RoleAgent:
		return RoleAgent, true
	}
	return "", false
}

type Account struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
	Mobile   string `db:"mobile" json:"mobile"`
	Hash     string `db:"password_hash" json:"-"`
	Role     Role   `db:"role" json:"role"`

	// Role-specific attributes.
	Expertise string `db:"expertise" json:"expertise,omitempty"` // expert
	Available bool   `db:"available" json:"available,omitempty"` // agent
}
