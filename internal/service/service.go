// Package service orchestrates storage, vendor clients and the calculator
// for each portal feature. Services read the caller from the request
// context (see middleware.GetIdentity) and return sentinel errors that the
// HTTP layer maps to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/middleware"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
	"github.com/mmynk/ownerportal/internal/vendors/hostaway"
	"github.com/mmynk/ownerportal/internal/vendors/hostkit"
)

var (
	// ErrForbidden is returned when the caller may not access a resource.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated is returned when no caller is present in the context.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// HostkitClient is the subset of the Hostkit API the services use.
type HostkitClient interface {
	GetReservations(ctx context.Context, apiKey, propertyID string, from, to time.Time) ([]models.Reservation, error)
	GetBookings(ctx context.Context, apiKey, propertyID string, from, to time.Time) ([]models.Reservation, error)
	GetInvoices(ctx context.Context, apiKey, propertyID string, from, to time.Time) ([]models.Invoice, error)
	Download(ctx context.Context, invoiceURL string) (io.ReadCloser, string, error)
}

// HostawayClient is the subset of the Hostaway API the services use.
type HostawayClient interface {
	Listings(ctx context.Context) ([]models.HostawayListing, error)
	Reservations(ctx context.Context, listingID int64, from, to string) ([]models.HostawayReservation, error)
	Reviews(ctx context.Context, listingID int64) ([]hostaway.Review, error)
}

var (
	_ HostkitClient  = (*hostkit.Client)(nil)
	_ HostawayClient = (*hostaway.Client)(nil)
)

// HostkitConfig holds the settings shared by the Hostkit-backed services.
type HostkitConfig struct {
	// FallbackAPIKey is used when a property has no key of its own, or when
	// the Hostkit id does not match a stored property.
	FallbackAPIKey string

	// Location decides which calendar day a vendor timestamp falls on.
	Location *time.Location
}

// hostkitAccess resolves a Hostkit property id into the stored property (if
// any) and the API key to call Hostkit with, enforcing who may see it.
type hostkitAccess struct {
	store  storage.PropertyStore
	client HostkitClient
	cfg    HostkitConfig
	logger *slog.Logger
}

func newHostkitAccess(store storage.PropertyStore, client HostkitClient, cfg HostkitConfig, logger *slog.Logger) hostkitAccess {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return hostkitAccess{store: store, client: client, cfg: cfg, logger: logger}
}

// resolve returns the stored property (nil when unknown) and the API key.
//
// Owners may only query their own properties. Hostkit ids without a stored
// property are open to staff only.
func (a hostkitAccess) resolve(ctx context.Context, hostkitID string) (*models.Property, string, error) {
	hostkitID = strings.TrimSpace(hostkitID)
	if hostkitID == "" {
		return nil, "", fmt.Errorf("%w: hostkit property id is required", ErrInvalidInput)
	}
	caller, ok := middleware.GetIdentity(ctx)
	if !ok {
		return nil, "", ErrUnauthenticated
	}

	property, err := a.store.GetPropertyByHostkitID(ctx, hostkitID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if !caller.IsStaff() {
			return nil, "", ErrForbidden
		}
		a.logger.Debug("Hostkit id has no stored property, using fallback key", "hostkit_id", hostkitID)
		property = nil
	case err != nil:
		return nil, "", fmt.Errorf("failed to look up property: %w", err)
	default:
		if !caller.IsStaff() && property.OwnerID != caller.UserID {
			return nil, "", ErrForbidden
		}
	}

	apiKey := a.cfg.FallbackAPIKey
	if property != nil && property.HasHostkitKey() {
		apiKey = property.HostkitAPIKey
	}
	if strings.TrimSpace(apiKey) == "" {
		return property, "", hostkit.ErrMissingAPIKey
	}
	return property, apiKey, nil
}

// parsePeriod parses the request date range in the configured location.
func (a hostkitAccess) parsePeriod(startDate, endDate string) (calculator.DateRange, error) {
	return calculator.ParseDateRange(startDate, endDate, a.cfg.Location)
}

// fetchWindow is the instant range sent to Hostkit for a period. It covers
// the whole last day, and extends back by lookback for filters that select
// on check-out.
func fetchWindow(period calculator.DateRange, lookback time.Duration) (time.Time, time.Time) {
	return period.Start.Add(-lookback), period.End.AddDate(0, 0, 1).Add(-time.Second)
}

// maxStayLookback is how far before a period a stay that ends inside it can start.
const maxStayLookback = 31 * 24 * time.Hour

func callerFrom(ctx context.Context) (middleware.Identity, error) {
	caller, ok := middleware.GetIdentity(ctx)
	if !ok {
		return middleware.Identity{}, ErrUnauthenticated
	}
	return caller, nil
}
