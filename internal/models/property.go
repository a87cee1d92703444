package models

import (
	"errors"
	"strings"
)

// PropertyStatus is the lifecycle state of a property.
type PropertyStatus string

const (
	PropertyActive   PropertyStatus = "active"
	PropertyInactive PropertyStatus = "inactive"
)

var (
	ErrPropertyNameRequired = errors.New("property name is required")
	ErrInvalidStatus        = errors.New("status must be active or inactive")
	ErrInvalidRoomCount     = errors.New("bedrooms and bathrooms cannot be negative")
)

// Property represents a rental unit managed on behalf of an owner.
type Property struct {
	// ID is the numeric identifier assigned by the store.
	ID int64 `json:"id" bson:"_id"`

	// Name is the display name of the property.
	Name string `json:"name" bson:"name"`

	// Address is the street address.
	Address string `json:"address" bson:"address"`

	// Type is a free-form category (e.g., "apartment", "villa").
	Type string `json:"type" bson:"type"`

	Bedrooms  int `json:"bedrooms" bson:"bedrooms"`
	Bathrooms int `json:"bathrooms" bson:"bathrooms"`

	// HostkitID is the property identifier on Hostkit (unique when set).
	HostkitID string `json:"hostkit_id" bson:"hostkit_id"`

	// HostkitAPIKey authenticates Hostkit calls for this property.
	// It is never serialized in API responses.
	HostkitAPIKey string `json:"-" bson:"hostkit_api_key"`

	// HostawayListingID links the property to a Hostaway listing (0 = none).
	HostawayListingID int64 `json:"hostaway_listing_id" bson:"hostaway_listing_id"`

	// OwnerID is the ID of the owning user.
	OwnerID string `json:"owner_id" bson:"owner_id"`

	// IsAdminOwned marks properties run by the management company itself.
	// No management commission is charged on them.
	IsAdminOwned bool `json:"is_admin_owned" bson:"is_admin_owned"`

	Status PropertyStatus `json:"status" bson:"status"`

	CreatedAt int64 `json:"created_at" bson:"created_at"`
	UpdatedAt int64 `json:"updated_at" bson:"updated_at"`
}

// HasHostkitKey reports whether the property can call Hostkit on its own key.
func (p *Property) HasHostkitKey() bool {
	return strings.TrimSpace(p.HostkitAPIKey) != ""
}

// Validate checks the invariants every stored property must satisfy.
// An empty status is defaulted to active.
func (p *Property) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrPropertyNameRequired
	}
	if p.Bedrooms < 0 || p.Bathrooms < 0 {
		return ErrInvalidRoomCount
	}
	if p.Status == "" {
		p.Status = PropertyActive
	}
	if p.Status != PropertyActive && p.Status != PropertyInactive {
		return ErrInvalidStatus
	}
	p.HostkitID = strings.TrimSpace(p.HostkitID)
	return nil
}
