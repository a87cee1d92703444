package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/ownerportal/internal/auth"
	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/service"
	"github.com/mmynk/ownerportal/internal/storage"
	"github.com/mmynk/ownerportal/internal/storage/sqlite"
	"github.com/mmynk/ownerportal/internal/vendors/hostaway"
	"github.com/mmynk/ownerportal/internal/vendors/hostkit"
)

type stubHostkit struct {
	reservations []models.Reservation
	invoices     []models.Invoice
	err          error
}

func (s *stubHostkit) GetReservations(context.Context, string, string, time.Time, time.Time) ([]models.Reservation, error) {
	return s.reservations, s.err
}

func (s *stubHostkit) GetBookings(context.Context, string, string, time.Time, time.Time) ([]models.Reservation, error) {
	return s.reservations, s.err
}

func (s *stubHostkit) GetInvoices(context.Context, string, string, time.Time, time.Time) ([]models.Invoice, error) {
	return s.invoices, s.err
}

func (s *stubHostkit) Download(_ context.Context, url string) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader("PDF:" + url)), "", nil
}

type stubHostaway struct{}

func (stubHostaway) Listings(context.Context) ([]models.HostawayListing, error) {
	return []models.HostawayListing{{ID: 101, Name: "Loft"}}, nil
}

func (stubHostaway) Reservations(context.Context, int64, string, string) ([]models.HostawayReservation, error) {
	return nil, hostaway.ErrNotConfigured
}

func (stubHostaway) Reviews(context.Context, int64) ([]hostaway.Review, error) {
	return nil, nil
}

type testServer struct {
	srv   *httptest.Server
	store *sqlite.SQLiteStore
	jwt   *auth.JWTManager
	kit   *stubHostkit

	adminToken string
	ownerToken string
	loft       *models.Property
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	admin := models.NewUser("admin@example.com", "Ada", "x", models.RoleAdmin)
	owner := models.NewUser("owner@example.com", "Olga", "x", models.RoleOwner)
	require.NoError(t, store.CreateUser(ctx, admin))
	require.NoError(t, store.CreateUser(ctx, owner))
	loft := &models.Property{Name: "Alfama Loft", HostkitID: "4711", HostkitAPIKey: "k", OwnerID: owner.ID}
	require.NoError(t, store.CreateProperty(ctx, loft))

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	kit := &stubHostkit{
		reservations: []models.Reservation{{
			RCode:          "R1",
			CheckIn:        time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC),
			CheckOut:       time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC),
			Adults:         2,
			ReceivedAmount: decimal.NewFromInt(300),
		}},
		invoices: []models.Invoice{{ID: "FT 1", Date: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), Value: decimal.NewFromInt(300), URL: "https://docs/1"}},
	}
	cfg := service.HostkitConfig{Location: time.UTC}
	h := New(Services{
		Auth:         service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, service.AuthConfig{}, nil),
		Properties:   service.NewPropertyService(store, nil),
		Statements:   service.NewStatementService(store, kit, cfg, decimal.NewFromInt(20), nil),
		TouristTax:   service.NewTouristTaxService(store, kit, cfg, calculator.DefaultTouristTaxRules(), nil, nil),
		Invoices:     service.NewInvoiceService(store, kit, cfg, nil),
		Reservations: service.NewReservationService(store, kit, cfg, nil),
		Bookings:     service.NewBookingService(store, stubHostaway{}, nil),
		Reviews:      service.NewReviewService(store, stubHostaway{}, nil),
	}, nil)

	srv := httptest.NewServer(NewRouter(h, jwtManager, RouterConfig{}))
	t.Cleanup(srv.Close)

	adminToken, err := jwtManager.Generate(admin)
	require.NoError(t, err)
	ownerToken, err := jwtManager.Generate(owner)
	require.NoError(t, err)

	return &testServer{
		srv:        srv,
		store:      store,
		jwt:        jwtManager,
		kit:        kit,
		adminToken: adminToken,
		ownerToken: ownerToken,
		loft:       loft,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestPropertyRoutes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"anonymous list", http.MethodGet, "/api/properties", "", nil, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"bad token", http.MethodGet, "/api/properties", "garbage", nil, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"owner list", http.MethodGet, "/api/properties", ts.ownerToken, nil, http.StatusOK, ""},
		{"owner create", http.MethodPost, "/api/properties", ts.ownerToken, map[string]any{"name": "X"}, http.StatusForbidden, "FORBIDDEN"},
		{"admin create", http.MethodPost, "/api/properties", ts.adminToken, map[string]any{"name": "Villa", "hostkit_id": "5000"}, http.StatusCreated, ""},
		{"admin create invalid", http.MethodPost, "/api/properties", ts.adminToken, map[string]any{"name": ""}, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"admin create duplicate", http.MethodPost, "/api/properties", ts.adminToken, map[string]any{"name": "Copy", "hostkit_id": "4711"}, http.StatusConflict, "ALREADY_EXISTS"},
		{"bad id", http.MethodGet, "/api/properties/abc", ts.adminToken, nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"missing", http.MethodGet, "/api/properties/9999", ts.adminToken, nil, http.StatusNotFound, "NOT_FOUND"},
		{"owner edits own", http.MethodPut, fmt.Sprintf("/api/properties/%d", ts.loft.ID), ts.ownerToken, map[string]any{"bedrooms": 2}, http.StatusOK, ""},
		{"owner sets key", http.MethodPut, fmt.Sprintf("/api/properties/%d", ts.loft.ID), ts.ownerToken, map[string]any{"hostkit_api_key": "x"}, http.StatusForbidden, "FORBIDDEN"},
		{"owner status", http.MethodPatch, fmt.Sprintf("/api/properties/%d/status", ts.loft.ID), ts.ownerToken, map[string]any{"status": "inactive"}, http.StatusForbidden, "FORBIDDEN"},
		{"admin status", http.MethodPatch, fmt.Sprintf("/api/properties/%d/status", ts.loft.ID), ts.adminToken, map[string]any{"status": "inactive"}, http.StatusOK, ""},
		{"reviews", http.MethodGet, fmt.Sprintf("/api/properties/%d/reviews", ts.loft.ID), ts.ownerToken, nil, http.StatusOK, ""},
		{"owner users", http.MethodGet, "/api/users", ts.ownerToken, nil, http.StatusForbidden, "FORBIDDEN"},
		{"admin users", http.MethodGet, "/api/users", ts.adminToken, nil, http.StatusOK, ""},
		{"listings", http.MethodGet, "/api/listings", ts.adminToken, nil, http.StatusOK, ""},
		{"bookings without hostaway", http.MethodGet, "/api/bookings", ts.adminToken, nil, http.StatusOK, ""},
		{"bookings bad property id", http.MethodGet, "/api/bookings?propertyId=x", ts.adminToken, nil, http.StatusBadRequest, "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				body := decodeBody[errorResponse](t, resp)
				assert.Equal(t, tt.wantCode, body.Code)
				assert.NotEmpty(t, body.Error)
			}
		})
	}

	resp := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/properties/%d", ts.loft.ID), ts.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestReportRoutes(t *testing.T) {
	ts := newTestServer(t)
	const period = "?startDate=2024-03-01&endDate=2024-03-31"

	t.Run("owner statement", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/owner-statements/4711"+period+"&commissionPercentage=10", ts.ownerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		st := decodeBody[models.OwnerStatement](t, resp)
		assert.Equal(t, models.RevenueFromInvoices, st.RevenueSource)
		assert.True(t, st.ManagementCommission.Equal(decimal.NewFromInt(30)))
	})

	t.Run("tourist tax", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/tourist-tax/4711"+period+"&filterType=checkout", ts.ownerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		report := decodeBody[models.TouristTaxReport](t, resp)
		assert.Equal(t, 6, report.Totals.AdultNights)
	})

	t.Run("reservations and invoices", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/reservations/4711"+period, ts.adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, decodeBody[service.ReservationList](t, resp).Count)

		resp = ts.do(t, http.MethodGet, "/api/invoices/4711"+period, ts.adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, decodeBody[service.InvoiceList](t, resp).Count)
	})

	t.Run("invoice download", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/invoices/4711/FT%201/download"+period, ts.ownerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Equal(t, `attachment; filename="invoice-FT_1.pdf"`, resp.Header.Get("Content-Disposition"))
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "PDF:https://docs/1", string(body))

		resp = ts.do(t, http.MethodGet, "/api/invoices/4711/nope/download"+period, ts.ownerToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad dates", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/owner-statements/4711?startDate=2024-13-01&endDate=2024-03-31", ts.ownerToken, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown hostkit id for owner", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/owner-statements/9999"+period, ts.ownerToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("missing api key for staff", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/owner-statements/9999"+period, ts.adminToken, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "MISSING_API_KEY", decodeBody[errorResponse](t, resp).Code)
	})

	t.Run("vendor failure", func(t *testing.T) {
		ts.kit.err = fmt.Errorf("%w: getReservations returned 500", hostkit.ErrUpstream)
		defer func() { ts.kit.err = nil }()
		resp := ts.do(t, http.MethodGet, "/api/reservations/4711"+period, ts.adminToken, nil)
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "UPSTREAM_ERROR", decodeBody[errorResponse](t, resp).Code)
	})
}

func TestAuthRoutes(t *testing.T) {
	ts := newTestServer(t)

	// Registration needs an admin once users exist.
	resp := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"email": "new@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/auth/register", ts.adminToken, map[string]any{"email": "new@example.com", "name": "Nia", "password": "correct-horse", "role": "accountant"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := decodeBody[models.User](t, resp)
	assert.Equal(t, models.RoleAccountant, user.Role)

	resp = ts.do(t, http.MethodPost, "/api/auth/register", ts.adminToken, map[string]any{"email": "new@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "new@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "new@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeBody[service.Session](t, resp)
	require.NotEmpty(t, session.Token)

	resp = ts.do(t, http.MethodGet, "/api/auth/me", session.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Nia", decodeBody[models.User](t, resp).Name)

	resp = ts.do(t, http.MethodPost, "/api/auth/otp/verify", "", map[string]any{"email": "new@example.com", "code": "123456"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", storage.ErrNotFound), http.StatusNotFound},
		{calculator.ErrInvalidCommission, http.StatusBadRequest},
		{auth.ErrInvalidOTP, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{auth.ErrEmailExists, http.StatusConflict},
		{hostaway.ErrUpstream, http.StatusBadGateway},
		{hostaway.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := statusOf(tt.err)
		assert.Equal(t, tt.want, got, "statusOf(%v)", tt.err)
	}
}
