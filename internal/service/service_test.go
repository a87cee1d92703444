package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/middleware"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage/sqlite"
	"github.com/mmynk/ownerportal/internal/vendors/hostaway"
)

var errVendorDown = errors.New("vendor down")

// fixture is a temp SQLite store seeded with one user per role and two
// properties: the loft (own key, Hostaway listing 101) owned by owner and
// the annex (no key, listing 102) owned by other.
type fixture struct {
	store *sqlite.SQLiteStore

	admin      *models.User
	accountant *models.User
	owner      *models.User
	other      *models.User

	loft  *models.Property
	annex *models.Property
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:      store,
		admin:      models.NewUser("admin@example.com", "Ada", "hash", models.RoleAdmin),
		accountant: models.NewUser("books@example.com", "Bea", "hash", models.RoleAccountant),
		owner:      models.NewUser("owner@example.com", "Olga", "hash", models.RoleOwner),
		other:      models.NewUser("other@example.com", "Otto", "hash", models.RoleOwner),
	}
	ctx := context.Background()
	for _, u := range []*models.User{f.admin, f.accountant, f.owner, f.other} {
		require.NoError(t, store.CreateUser(ctx, u))
	}

	f.loft = &models.Property{
		Name:              "Alfama Loft",
		HostkitID:         "4711",
		HostkitAPIKey:     "loft-key",
		HostawayListingID: 101,
		OwnerID:           f.owner.ID,
		Status:            models.PropertyActive,
	}
	f.annex = &models.Property{
		Name:              "Graca Annex",
		HostkitID:         "4712",
		HostawayListingID: 102,
		OwnerID:           f.other.ID,
		Status:            models.PropertyActive,
	}
	require.NoError(t, store.CreateProperty(ctx, f.loft))
	require.NoError(t, store.CreateProperty(ctx, f.annex))
	return f
}

// as returns a context authenticated as u.
func as(u *models.User) context.Context {
	return middleware.WithIdentity(context.Background(), middleware.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	})
}

var testHostkitConfig = HostkitConfig{FallbackAPIKey: "fallback-key", Location: time.UTC}

// at returns 15:00 UTC on the given day.
func at(date string) time.Time {
	t, err := time.Parse(calculator.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return t.Add(15 * time.Hour)
}

type hostkitCall struct {
	endpoint   string
	apiKey     string
	propertyID string
	from, to   time.Time
}

type fakeHostkit struct {
	mu    sync.Mutex
	calls []hostkitCall

	reservations    []models.Reservation
	reservationsErr error
	bookings        []models.Reservation
	bookingsErr     error
	invoices        []models.Invoice
	invoicesErr     error

	// documents maps invoice URLs to their body.
	documents map[string]string
}

func (f *fakeHostkit) record(endpoint, apiKey, propertyID string, from, to time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hostkitCall{endpoint, apiKey, propertyID, from, to})
}

func (f *fakeHostkit) call(endpoint string) (hostkitCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.endpoint == endpoint {
			return c, true
		}
	}
	return hostkitCall{}, false
}

func (f *fakeHostkit) GetReservations(_ context.Context, apiKey, propertyID string, from, to time.Time) ([]models.Reservation, error) {
	f.record("getReservations", apiKey, propertyID, from, to)
	return f.reservations, f.reservationsErr
}

func (f *fakeHostkit) GetBookings(_ context.Context, apiKey, propertyID string, from, to time.Time) ([]models.Reservation, error) {
	f.record("getBookings", apiKey, propertyID, from, to)
	return f.bookings, f.bookingsErr
}

func (f *fakeHostkit) GetInvoices(_ context.Context, apiKey, propertyID string, from, to time.Time) ([]models.Invoice, error) {
	f.record("getInvoices", apiKey, propertyID, from, to)
	return f.invoices, f.invoicesErr
}

func (f *fakeHostkit) Download(_ context.Context, invoiceURL string) (io.ReadCloser, string, error) {
	body, ok := f.documents[invoiceURL]
	if !ok {
		return nil, "", errVendorDown
	}
	return io.NopCloser(strings.NewReader(body)), "application/pdf", nil
}

type fakeHostaway struct {
	listings     []models.HostawayListing
	reservations map[int64][]models.HostawayReservation
	reviews      map[int64][]hostaway.Review
	failing      map[int64]error

	mu           sync.Mutex
	reservedFrom []string
}

func (f *fakeHostaway) Listings(context.Context) ([]models.HostawayListing, error) {
	return f.listings, nil
}

func (f *fakeHostaway) Reservations(_ context.Context, listingID int64, from, to string) ([]models.HostawayReservation, error) {
	f.mu.Lock()
	f.reservedFrom = append(f.reservedFrom, from+".."+to)
	f.mu.Unlock()
	if err := f.failing[listingID]; err != nil {
		return nil, err
	}
	return f.reservations[listingID], nil
}

func (f *fakeHostaway) Reviews(_ context.Context, listingID int64) ([]hostaway.Review, error) {
	if err := f.failing[listingID]; err != nil {
		return nil, err
	}
	return f.reviews[listingID], nil
}
