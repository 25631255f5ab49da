package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a portal permission level. Higher roles hold every right of the roles below them.
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "Manager"
	RoleStaff      Role = "Staff"
)

var roleRank = map[Role]int{
	RoleStaff:      1,
	RoleManager:    2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	for r := range roleRank {
		if equalFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// AtLeast reports whether r grants every right of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// Scoped reports whether users of this role are bound to a single property.
func (r Role) Scoped() bool { return r != RoleSuperAdmin }

// User is an application-level profile. Credentials live with the identity provider.
type User struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       Role       `json:"role"`
	PropertyID *uuid.UUID `json:"propertyId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// CanAccessProperty reports whether the user may act on resources of the given property.
func (u *User) CanAccessProperty(propertyID uuid.UUID) bool {
	if !u.Role.Scoped() {
		return true
	}
	return u.PropertyID != nil && *u.PropertyID == propertyID
}
