// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package models

// Role constants. These align with the Casbin policy in internal/authz/policy.csv.
const (
	RoleAdministrator = "administrator"
	RoleEditor        = "editor"
	RoleAuthor        = "author"
	RoleContributor   = "contributor"
)

// ValidRoles contains all valid role names for validation.
var ValidRoles = []string{RoleAdministrator, RoleEditor, RoleAuthor, RoleContributor}

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is a local author identity. Login is used in author archive URLs
// and ProfileURL is matched against the "me" of an IndieAuth token.
type User struct {
	ID         string   `json:"id" validate:"required"`
	Login      string   `json:"login" validate:"required"`
	Name       string   `json:"name,omitempty"`
	ProfileURL string   `json:"profile_url,omitempty" validate:"omitempty,url"`
	Roles      []string `json:"roles,omitempty" validate:"dive,oneof=administrator editor author contributor"`
}

// CanAuthor reports whether the user holds a role able to write entries.
func (u *User) CanAuthor() bool {
	for _, r := range u.Roles {
		if r != RoleContributor && IsValidRole(r) {
			return true
		}
	}
	return false
}
