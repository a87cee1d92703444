// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/ownerportal/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique field (email, Hostkit id) is taken.
	ErrDuplicate = errors.New("already exists")
)

// Store defines the persistence operations of the portal.
// This abstraction allows swapping storage backends (SQLite, MongoDB)
// without changing the service layer.
type Store interface {
	UserStore
	PropertyStore
	ReviewStore

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists portal accounts.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrDuplicate if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns ErrNotFound if missing.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID. Returns ErrNotFound if missing.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// ListUsers returns every user ordered by email.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)
}

// PropertyStore persists managed properties.
type PropertyStore interface {
	// CreateProperty persists a new property and populates its ID and timestamps.
	CreateProperty(ctx context.Context, p *models.Property) error

	// GetProperty retrieves a property by ID. Returns ErrNotFound if missing.
	GetProperty(ctx context.Context, id int64) (*models.Property, error)

	// GetPropertyByHostkitID retrieves a property by its Hostkit identifier.
	// Returns ErrNotFound if no stored property carries that id.
	GetPropertyByHostkitID(ctx context.Context, hostkitID string) (*models.Property, error)

	// ListProperties returns every property ordered by name.
	ListProperties(ctx context.Context) ([]*models.Property, error)

	// ListPropertiesByOwner returns the properties owned by a user.
	ListPropertiesByOwner(ctx context.Context, ownerID string) ([]*models.Property, error)

	// UpdateProperty overwrites a stored property. Returns ErrNotFound if missing.
	UpdateProperty(ctx context.Context, p *models.Property) error

	// DeleteProperty removes a property and its reviews. Returns ErrNotFound if missing.
	DeleteProperty(ctx context.Context, id int64) error
}

// ReviewStore persists reviews synced from Hostaway.
type ReviewStore interface {
	// UpsertReviews inserts or replaces reviews keyed by their Hostaway id.
	UpsertReviews(ctx context.Context, reviews []models.Review) error

	// ListReviewsByProperty returns the reviews of a property, newest first.
	ListReviewsByProperty(ctx context.Context, propertyID int64) ([]models.Review, error)
}
