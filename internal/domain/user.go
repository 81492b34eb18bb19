package domain

import "time"

// Role enumerates user roles in ascending order of privilege.
type Role string

const (
	RoleCustomer      Role = "CUSTOMER"
	RoleCustomerAdmin Role = "CUSTOMER_ADMIN"
	RoleAgent         Role = "AGENT"
	RoleManager       Role = "MANAGER"
	RoleAdmin         Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleCustomer:      0,
	RoleCustomerAdmin: 1,
	RoleAgent:         2,
	RoleManager:       3,
	RoleAdmin:         4,
}

// AtLeast reports whether r sits at or above other in the role hierarchy.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// IsStaff reports whether the role is an internal operator role.
func (r Role) IsStaff() bool {
	return r.AtLeast(RoleAgent)
}

// User belongs to exactly one organization; (org, email) is unique.
type User struct {
	ID             string
	OrganizationID string
	Email          string
	Name           string
	PasswordHash   string
	Role           Role
	IsActive       bool
	EmailVerified  bool
	TwoFAEnabled   bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
