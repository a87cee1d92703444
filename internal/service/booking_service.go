package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
	"github.com/mmynk/ownerportal/internal/vendors/hostaway"
)

// BookingService reads bookings and listings from Hostaway.
type BookingService struct {
	store  storage.PropertyStore
	client HostawayClient
	logger *slog.Logger
}

// NewBookingService creates a BookingService.
func NewBookingService(store storage.PropertyStore, client HostawayClient, logger *slog.Logger) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingService{store: store, client: client, logger: logger}
}

// Booking is a Hostaway reservation tagged with the local property.
type Booking struct {
	PropertyID   int64  `json:"property_id"`
	PropertyName string `json:"property_name"`
	models.HostawayReservation
}

// BookingQuery filters bookings. Zero values mean no filter.
type BookingQuery struct {
	PropertyID int64
	StartDate  string
	EndDate    string
}

// Bookings returns the Hostaway reservations of the caller's linked
// properties, or of one property. A listing whose fetch fails is skipped.
func (s *BookingService) Bookings(ctx context.Context, q BookingQuery) ([]Booking, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if (q.StartDate == "") != (q.EndDate == "") {
		return nil, fmt.Errorf("%w: startDate and endDate must be given together", ErrInvalidInput)
	}
	if q.StartDate != "" {
		if _, err := calculator.ParseDateRange(q.StartDate, q.EndDate, nil); err != nil {
			return nil, err
		}
	}

	var properties []*models.Property
	switch {
	case q.PropertyID != 0:
		p, err := s.store.GetProperty(ctx, q.PropertyID)
		if err != nil {
			return nil, err
		}
		if !canView(caller.Role, caller.UserID, p) {
			return nil, ErrForbidden
		}
		properties = []*models.Property{p}
	case caller.IsStaff():
		properties, err = s.store.ListProperties(ctx)
	default:
		properties, err = s.store.ListPropertiesByOwner(ctx, caller.UserID)
	}
	if err != nil {
		return nil, err
	}

	bookings := []Booking{}
	for _, p := range properties {
		if p.HostawayListingID == 0 {
			continue
		}
		reservations, err := s.client.Reservations(ctx, p.HostawayListingID, q.StartDate, q.EndDate)
		if errors.Is(err, hostaway.ErrNotConfigured) {
			return nil, err
		}
		if err != nil {
			s.logger.Warn("Skipping listing, Hostaway reservations fetch failed",
				"property_id", p.ID,
				"listing_id", p.HostawayListingID,
				"error", err,
			)
			continue
		}
		for _, r := range reservations {
			bookings = append(bookings, Booking{PropertyID: p.ID, PropertyName: p.Name, HostawayReservation: r})
		}
	}

	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].ArrivalDate < bookings[j].ArrivalDate
	})
	return bookings, nil
}

// Listings returns every Hostaway listing on the account. Admin only.
func (s *BookingService) Listings(ctx context.Context) ([]models.HostawayListing, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.client.Listings(ctx)
}
