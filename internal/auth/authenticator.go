package auth

import (
	"context"

	"github.com/mmynk/ownerportal/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Register creates a new user account with the given email, role and credential.
	// Returns the created user or an error if registration fails.
	Register(ctx context.Context, email, name, credential string, role models.Role, opts ...RegisterOption) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}

// RegisterOption adjusts a user before it is stored.
type RegisterOption func(*models.User)

// WithOTP turns on the one-time code step at login.
func WithOTP(enabled bool) RegisterOption {
	return func(u *models.User) { u.OTPEnabled = enabled }
}
