// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema holds declarative table and column definitions so that
// query builders reference one source of truth instead of string literals.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table              string
	ID                 string
	Username           string
	Email              string
	Password           string
	Roles              string
	ActiveRefreshToken string
	CreatedAt          string
	UpdatedAt          string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:              "users.account",
	ID:                 "id",
	Username:           "username",
	Email:              "email",
	Password:           "passwordhash",
	Roles:              "roles",
	ActiveRefreshToken: "activerefreshtoken",
	CreatedAt:          "createdat",
	UpdatedAt:          "updatedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Email, t.Password, t.Roles,
		t.ActiveRefreshToken, t.CreatedAt, t.UpdatedAt,
	}
}
