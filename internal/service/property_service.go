package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
)

// PropertyService manages the stored properties.
//
// Access rules:
//   - admins create, change, and delete any property
//   - accountants read every property
//   - owners read their own properties and edit their descriptive fields
type PropertyService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewPropertyService creates a PropertyService.
func NewPropertyService(store storage.Store, logger *slog.Logger) *PropertyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropertyService{store: store, logger: logger}
}

// PropertyInput carries the fields of a create or update request. Nil
// fields are left unchanged on update.
type PropertyInput struct {
	Name      *string `json:"name"`
	Address   *string `json:"address"`
	Type      *string `json:"type"`
	Bedrooms  *int    `json:"bedrooms"`
	Bathrooms *int    `json:"bathrooms"`

	// Admin-only fields.
	HostkitID         *string                `json:"hostkit_id"`
	HostkitAPIKey     *string                `json:"hostkit_api_key"`
	HostawayListingID *int64                 `json:"hostaway_listing_id"`
	OwnerID           *string                `json:"owner_id"`
	IsAdminOwned      *bool                  `json:"is_admin_owned"`
	Status            *models.PropertyStatus `json:"status"`
}

func (in PropertyInput) touchesAdminFields() bool {
	return in.HostkitID != nil || in.HostkitAPIKey != nil || in.HostawayListingID != nil ||
		in.OwnerID != nil || in.IsAdminOwned != nil || in.Status != nil
}

func (in PropertyInput) applyTo(p *models.Property) {
	set(&p.Name, in.Name)
	set(&p.Address, in.Address)
	set(&p.Type, in.Type)
	set(&p.Bedrooms, in.Bedrooms)
	set(&p.Bathrooms, in.Bathrooms)
	set(&p.HostkitID, in.HostkitID)
	set(&p.HostkitAPIKey, in.HostkitAPIKey)
	set(&p.HostawayListingID, in.HostawayListingID)
	set(&p.OwnerID, in.OwnerID)
	set(&p.IsAdminOwned, in.IsAdminOwned)
	set(&p.Status, in.Status)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Create stores a new property. Admin only.
func (s *PropertyService) Create(ctx context.Context, in PropertyInput) (*models.Property, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	p := &models.Property{}
	in.applyTo(p)
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}
	if err := s.store.CreateProperty(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Property created", "property_id", p.ID, "name", p.Name, "by", caller.UserID)
	return p, nil
}

// Get returns a property the caller may see.
func (s *PropertyService) Get(ctx context.Context, id int64) (*models.Property, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(caller.Role, caller.UserID, p) {
		return nil, ErrForbidden
	}
	return p, nil
}

// List returns every property for staff and the caller's own for owners.
func (s *PropertyService) List(ctx context.Context) ([]*models.Property, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if caller.IsStaff() {
		return s.store.ListProperties(ctx)
	}
	return s.store.ListPropertiesByOwner(ctx, caller.UserID)
}

// Update changes a property. Owners may only change the descriptive fields
// of their own properties.
func (s *PropertyService) Update(ctx context.Context, id int64, in PropertyInput) (*models.Property, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case models.RoleAdmin:
	case models.RoleOwner:
		if p.OwnerID != caller.UserID || in.touchesAdminFields() {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}

	in.applyTo(p)
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProperty(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Property updated", "property_id", p.ID, "by", caller.UserID)
	return p, nil
}

// SetStatus activates or deactivates a property. Admin only.
func (s *PropertyService) SetStatus(ctx context.Context, id int64, status models.PropertyStatus) (*models.Property, error) {
	return s.Update(ctx, id, PropertyInput{Status: &status})
}

// Delete removes a property and its reviews. Admin only.
func (s *PropertyService) Delete(ctx context.Context, id int64) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	if caller.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if err := s.store.DeleteProperty(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Property deleted", "property_id", id, "by", caller.UserID)
	return nil
}

// validate checks the model invariants and that the owner exists.
func (s *PropertyService) validate(ctx context.Context, p *models.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.OwnerID = strings.TrimSpace(p.OwnerID)
	if p.OwnerID == "" {
		return nil
	}
	if _, err := s.store.GetUserByID(ctx, p.OwnerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: owner %s does not exist", ErrInvalidInput, p.OwnerID)
		}
		return err
	}
	return nil
}

func canView(role models.Role, userID string, p *models.Property) bool {
	return role.IsStaff() || (p.OwnerID != "" && p.OwnerID == userID)
}
