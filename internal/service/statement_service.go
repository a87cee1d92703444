package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/metrics"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
)

// StatementService generates owner statements from Hostkit data.
type StatementService struct {
	hostkitAccess
	defaultCommission decimal.Decimal
}

// NewStatementService creates a StatementService. defaultCommission is the
// percentage applied when a request does not name one.
func NewStatementService(store storage.PropertyStore, client HostkitClient, cfg HostkitConfig, defaultCommission decimal.Decimal, logger *slog.Logger) *StatementService {
	return &StatementService{
		hostkitAccess:     newHostkitAccess(store, client, cfg, logger),
		defaultCommission: defaultCommission,
	}
}

// StatementRequest identifies the property and period of a statement.
type StatementRequest struct {
	HostkitID string
	StartDate string
	EndDate   string

	// CommissionPercentage is optional; empty uses the default.
	CommissionPercentage string
}

// Generate computes the owner statement for a property and period.
//
// Invoices and reservations are fetched concurrently. A failed reservation
// fetch fails the statement; a failed invoice fetch only loses the invoice
// view, and revenue falls back to reservation amounts.
func (s *StatementService) Generate(ctx context.Context, req StatementRequest) (*models.OwnerStatement, error) {
	period, err := s.parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	pct, err := s.commission(req.CommissionPercentage)
	if err != nil {
		return nil, err
	}

	property, apiKey, err := s.resolve(ctx, req.HostkitID)
	if err != nil {
		return nil, err
	}
	hostkitID := strings.TrimSpace(req.HostkitID)
	from, to := fetchWindow(period, 0)

	var (
		reservations []models.Reservation
		invoices     []models.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.client.GetInvoices(gctx, apiKey, hostkitID, from, to)
		if err != nil {
			s.logger.Warn("Invoice fetch failed, using reservation revenue",
				"hostkit_id", hostkitID,
				"error", err,
			)
			invoices = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		reservations, err = s.client.GetReservations(gctx, apiKey, hostkitID, from, to)
		if err != nil {
			return fmt.Errorf("failed to fetch reservations: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := calculator.StatementInput{
		PropertyID:           hostkitID,
		CommissionPercentage: pct,
		Period:               period,
		Reservations:         reservations,
		Invoices:             invoices,
	}
	if property != nil {
		in.PropertyName = property.Name
		in.IsAdminOwned = property.IsAdminOwned
	}

	statement, err := calculator.CalculateOwnerStatement(in)
	if err != nil {
		return nil, err
	}
	metrics.StatementsGenerated.WithLabelValues(string(statement.RevenueSource)).Inc()

	s.logger.Info("Owner statement generated",
		"hostkit_id", hostkitID,
		"start", statement.StartDate,
		"end", statement.EndDate,
		"reservations", statement.ReservationCount,
		"invoices", statement.InvoiceCount,
		"revenue_source", statement.RevenueSource,
		"total_revenue", statement.TotalRevenue.String(),
	)
	return statement, nil
}

func (s *StatementService) commission(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.defaultCommission, nil
	}
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, calculator.ErrInvalidCommission
	}
	return pct, nil
}
