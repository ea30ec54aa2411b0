// Package domain contains the core data types for the recipe catalogue.
// This package has no dependencies beyond uuid and is imported by every other
// internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password accepted at signup and on profile update.
const MinPasswordLength = 6

// User is an account holder. Email is always stored lower-cased and is the login key.
// PasswordHash is a bcrypt hash and never leaves the service layer in a response.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfilePatch lists the self-service fields a user may change.
// A nil pointer leaves the field untouched.
type ProfilePatch struct {
	Name     *string
	Password *string
}
