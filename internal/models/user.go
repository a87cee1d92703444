package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role controls what a user can see and change.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleAccountant Role = "accountant"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAccountant, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role can see every property.
func (r Role) IsStaff() bool {
	return r == RoleAccountant || r == RoleAdmin
}

// User represents a registered portal account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id" bson:"_id"`

	// Email is the login address, stored lower-cased (unique).
	Email string `json:"email" bson:"email"`

	// Name is the display name shown in the portal.
	Name string `json:"name" bson:"name"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-" bson:"password_hash"`

	// Role is one of owner, accountant or admin.
	Role Role `json:"role" bson:"role"`

	// OTPEnabled requires a one-time code after the password step.
	OTPEnabled bool `json:"otp_enabled" bson:"otp_enabled"`

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64 `json:"created_at" bson:"created_at"`

	// UpdatedAt is the Unix timestamp of the last change.
	UpdatedAt int64 `json:"updated_at" bson:"updated_at"`
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, name, passwordHash string, role Role) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
