// Package models defines the entities handled by the session subsystem.
package models

import "time"

// Role classifies a user account.
type Role string

const (
	RoleAuditor    Role = "auditor"
	RoleTechnician Role = "technician"
)

// User is an identity record. Credentials are never stored on the user row;
// they live in the settings table under a derived key.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Role      Role       `json:"role"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// LoginCredentials is a username/secret pair submitted at login.
// The password slice should be wiped by the caller after use.
type LoginCredentials struct {
	Username string
	Password []byte
}

// RegistrationData carries the fields needed to create an account.
type RegistrationData struct {
	Username string
	Password []byte
	Name     string
	Email    string
}
