// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and authentication-session layer.

It defines the core domain entity (User) and the logic for credential
verification, dual-token issuance, and refresh-token rotation.

# Architecture

This layer is the "Truth" of the system. The entity defined here has no
external dependencies and encapsulates all business rules related to user
identity. The session model is deliberately minimal: each identity holds AT
MOST ONE active refresh token, stored directly on its record and superseded
by every login, rotation, or password change.
*/
package auth

import (
	"time"

	"github.com/taibuivan/veyra/internal/platform/sec"
)

// # Domain Entities

// User represents a registered identity on the Veyra platform.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"` // Explicitly omitted from JSON for security.
	Roles        []string `json:"roles"`

	// ActiveRefreshToken is the single refresh token that will currently
	// validate for this identity. nil means no session. Any other token —
	// even one that is well-formed and unexpired — is rejected by rotation.
	ActiveRefreshToken *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (user *User) IsAdmin() bool {
	return sec.HasRole(user.Roles, sec.RoleAdmin)
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
	FieldCurrentPassword = "current_password"
	FieldClientID        = "client_id"
	FieldToken           = "token"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldUser            = "user"
	FieldMessage         = "message"
	FieldDeleted         = "deleted"
	FieldID              = "id"
)
