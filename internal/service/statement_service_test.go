package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/vendors/hostkit"
)

func marchHostkit() *fakeHostkit {
	return &fakeHostkit{
		reservations: []models.Reservation{
			{RCode: "R1", CheckIn: at("2024-03-02"), CheckOut: at("2024-03-05"),
				ReceivedAmount: decimal.NewFromInt(300), CleaningFee: decimal.NewFromInt(50)},
			{RCode: "R0", CheckIn: at("2024-02-27"), CheckOut: at("2024-03-02"),
				ReceivedAmount: decimal.NewFromInt(999)},
			{RCode: "R3", CheckIn: at("2024-03-20"), CheckOut: at("2024-03-22"),
				ReceivedAmount: decimal.NewFromInt(200)},
		},
		invoices: []models.Invoice{
			{ID: "I1", RCode: "R1", Date: at("2024-03-05"), Value: decimal.NewFromInt(310), URL: "https://docs/I1"},
			{ID: "I2", Date: at("2024-04-02"), Value: decimal.NewFromInt(80)},
		},
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStatementService_Generate(t *testing.T) {
	f := newFixture(t)
	client := marchHostkit()
	svc := NewStatementService(f.store, client, testHostkitConfig, decimal.NewFromInt(15), nil)

	st, err := svc.Generate(as(f.owner), StatementRequest{
		HostkitID:            "4711",
		StartDate:            "2024-03-01",
		EndDate:              "2024-03-31",
		CommissionPercentage: "20",
	})
	require.NoError(t, err)

	assert.Equal(t, "Alfama Loft", st.PropertyName)
	assert.Equal(t, 2, st.ReservationCount)
	assert.Equal(t, 1, st.InvoiceCount)
	assert.Equal(t, models.RevenueFromInvoices, st.RevenueSource)
	assert.True(t, st.TotalRevenue.Equal(d("310")), "total revenue %s", st.TotalRevenue)
	assert.True(t, st.ManagementCommission.Equal(d("52")), "commission %s", st.ManagementCommission)
	assert.True(t, st.NetAmountOwner.Equal(d("258")), "net %s", st.NetAmountOwner)

	call, ok := client.call("getReservations")
	require.True(t, ok)
	assert.Equal(t, "loft-key", call.apiKey)
	assert.Equal(t, "4711", call.propertyID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), call.from)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), call.to)
	_, ok = client.call("getInvoices")
	assert.True(t, ok)
}

func TestStatementService_DefaultCommissionAndFallback(t *testing.T) {
	f := newFixture(t)
	client := marchHostkit()
	client.invoicesErr = errVendorDown
	svc := NewStatementService(f.store, client, testHostkitConfig, decimal.NewFromInt(10), nil)

	st, err := svc.Generate(as(f.accountant), StatementRequest{
		HostkitID: "4711",
		StartDate: "2024-03-01",
		EndDate:   "2024-03-31",
	})
	require.NoError(t, err)

	// Invoice failure falls back to reservation revenue: 300 + 200.
	assert.Equal(t, models.RevenueFromReservations, st.RevenueSource)
	assert.True(t, st.TotalRevenue.Equal(d("500")))
	assert.True(t, st.CommissionPercentage.Equal(d("10")))
	assert.True(t, st.ManagementCommission.Equal(d("45")), "commission %s", st.ManagementCommission)
	assert.True(t, st.NetAmountOwner.Equal(d("455")))
}

func TestStatementService_AdminOwned(t *testing.T) {
	f := newFixture(t)
	f.loft.IsAdminOwned = true
	require.NoError(t, f.store.UpdateProperty(context.Background(), f.loft))

	svc := NewStatementService(f.store, marchHostkit(), testHostkitConfig, decimal.NewFromInt(20), nil)
	st, err := svc.Generate(as(f.admin), StatementRequest{HostkitID: "4711", StartDate: "2024-03-01", EndDate: "2024-03-31"})
	require.NoError(t, err)

	assert.False(t, st.RequiresCommission)
	assert.True(t, st.ManagementCommission.IsZero())
	assert.True(t, st.NetAmountOwner.Equal(st.TotalRevenue))
}

func TestStatementService_Access(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		ctx       context.Context
		hostkitID string
		cfg       HostkitConfig
		wantErr   error
		wantKey   string
	}{
		{name: "owner of property", ctx: as(f.owner), hostkitID: "4711", cfg: testHostkitConfig, wantKey: "loft-key"},
		{name: "other owner", ctx: as(f.other), hostkitID: "4711", cfg: testHostkitConfig, wantErr: ErrForbidden},
		{name: "no stored key uses fallback", ctx: as(f.other), hostkitID: "4712", cfg: testHostkitConfig, wantKey: "fallback-key"},
		{name: "unknown id for staff", ctx: as(f.accountant), hostkitID: "9999", cfg: testHostkitConfig, wantKey: "fallback-key"},
		{name: "unknown id for owner", ctx: as(f.owner), hostkitID: "9999", cfg: testHostkitConfig, wantErr: ErrForbidden},
		{name: "no key anywhere", ctx: as(f.admin), hostkitID: "4712", cfg: HostkitConfig{}, wantErr: hostkit.ErrMissingAPIKey},
		{name: "anonymous", ctx: context.Background(), hostkitID: "4711", cfg: testHostkitConfig, wantErr: ErrUnauthenticated},
		{name: "blank id", ctx: as(f.admin), hostkitID: " ", cfg: testHostkitConfig, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := marchHostkit()
			svc := NewStatementService(f.store, client, tt.cfg, decimal.NewFromInt(20), nil)
			_, err := svc.Generate(tt.ctx, StatementRequest{HostkitID: tt.hostkitID, StartDate: "2024-03-01", EndDate: "2024-03-31"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			call, ok := client.call("getReservations")
			require.True(t, ok)
			assert.Equal(t, tt.wantKey, call.apiKey)
		})
	}
}

func TestStatementService_InvalidRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		req     StatementRequest
		mutate  func(*fakeHostkit)
		wantErr error
	}{
		{
			name:    "bad date",
			req:     StatementRequest{HostkitID: "4711", StartDate: "03/01/2024", EndDate: "2024-03-31"},
			wantErr: calculator.ErrInvalidDate,
		},
		{
			name:    "reversed range",
			req:     StatementRequest{HostkitID: "4711", StartDate: "2024-04-01", EndDate: "2024-03-31"},
			wantErr: calculator.ErrInvalidDateRange,
		},
		{
			name:    "commission not a number",
			req:     StatementRequest{HostkitID: "4711", StartDate: "2024-03-01", EndDate: "2024-03-31", CommissionPercentage: "abc"},
			wantErr: calculator.ErrInvalidCommission,
		},
		{
			name:    "commission above 100",
			req:     StatementRequest{HostkitID: "4711", StartDate: "2024-03-01", EndDate: "2024-03-31", CommissionPercentage: "120"},
			wantErr: calculator.ErrInvalidCommission,
		},
		{
			name:    "reservation fetch fails",
			req:     StatementRequest{HostkitID: "4711", StartDate: "2024-03-01", EndDate: "2024-03-31"},
			mutate:  func(c *fakeHostkit) { c.reservationsErr = errVendorDown },
			wantErr: errVendorDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := marchHostkit()
			if tt.mutate != nil {
				tt.mutate(client)
			}
			svc := NewStatementService(f.store, client, testHostkitConfig, decimal.NewFromInt(20), nil)
			_, err := svc.Generate(as(f.admin), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
