// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

const (
	// Default role carried by every registered account
	RoleUser = "user"

	// Unrestricted system access; may create further admin accounts
	RoleAdmin = "admin"
)

// DefaultRoles returns the role set assigned to a self-registered account.
func DefaultRoles() []string {
	return []string{RoleUser}
}

// AdminRoles returns the role set assigned to an admin-created account.
func AdminRoles() []string {
	return []string{RoleUser, RoleAdmin}
}

// HasRole reports whether the given role set contains the target role.
//
// Roles are an unordered set of strings rather than a hierarchy, so membership
// is an exact string match.
func HasRole(roles []string, target string) bool {
	for _, role := range roles {
		if role == target {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the claims belong to an administrator.
func (claims *AccessClaims) IsAdmin() bool {
	return claims != nil && HasRole(claims.Roles, RoleAdmin)
}
