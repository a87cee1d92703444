package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
)

// defaultDownloadLookback bounds the invoice search when a download request
// names no period.
const defaultDownloadLookback = 366 * 24 * time.Hour

// InvoiceService lists and downloads Hostkit invoices.
type InvoiceService struct {
	hostkitAccess
	now func() time.Time
}

// NewInvoiceService creates an InvoiceService.
func NewInvoiceService(store storage.PropertyStore, client HostkitClient, cfg HostkitConfig, logger *slog.Logger) *InvoiceService {
	return &InvoiceService{
		hostkitAccess: newHostkitAccess(store, client, cfg, logger),
		now:           time.Now,
	}
}

// InvoiceList is the invoices of a property issued within a period.
type InvoiceList struct {
	PropertyID string           `json:"property_id"`
	StartDate  string           `json:"start_date"`
	EndDate    string           `json:"end_date"`
	Count      int              `json:"count"`
	Total      decimal.Decimal  `json:"total"`
	Invoices   []models.Invoice `json:"invoices"`
}

// List returns the in-period invoices of a property, oldest first.
func (s *InvoiceService) List(ctx context.Context, hostkitID, startDate, endDate string) (*InvoiceList, error) {
	period, err := s.parsePeriod(startDate, endDate)
	if err != nil {
		return nil, err
	}
	invoices, err := s.fetch(ctx, hostkitID, period)
	if err != nil {
		return nil, err
	}

	list := &InvoiceList{
		PropertyID: strings.TrimSpace(hostkitID),
		StartDate:  period.StartString(),
		EndDate:    period.EndString(),
		Count:      len(invoices),
		Total:      decimal.Zero,
		Invoices:   invoices,
	}
	for _, inv := range invoices {
		list.Total = list.Total.Add(inv.Value)
	}
	return list, nil
}

// InvoiceDocument is an open invoice download. The caller must close Body.
type InvoiceDocument struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

// Download finds an invoice of the property by id and opens its document.
// startDate and endDate narrow the search; when empty the last year is searched.
func (s *InvoiceService) Download(ctx context.Context, hostkitID, invoiceID, startDate, endDate string) (*InvoiceDocument, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: invoice id is required", ErrInvalidInput)
	}

	var period calculator.DateRange
	var err error
	if startDate == "" && endDate == "" {
		today := s.now().In(s.cfg.Location)
		period, err = s.parsePeriod(
			today.Add(-defaultDownloadLookback).Format(calculator.DateLayout),
			today.Format(calculator.DateLayout),
		)
	} else {
		period, err = s.parsePeriod(startDate, endDate)
	}
	if err != nil {
		return nil, err
	}

	invoices, err := s.fetch(ctx, hostkitID, period)
	if err != nil {
		return nil, err
	}

	var found *models.Invoice
	for i := range invoices {
		if invoices[i].ID == invoiceID {
			found = &invoices[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, storage.ErrNotFound)
	}
	if found.URL == "" {
		return nil, fmt.Errorf("invoice %s has no document: %w", invoiceID, storage.ErrNotFound)
	}

	body, contentType, err := s.client.Download(ctx, found.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download invoice %s: %w", invoiceID, err)
	}
	s.logger.Info("Invoice downloaded", "hostkit_id", hostkitID, "invoice_id", invoiceID)
	return &InvoiceDocument{
		Body:        body,
		ContentType: contentType,
		Filename:    fmt.Sprintf("invoice-%s.pdf", sanitizeFilename(invoiceID)),
	}, nil
}

func (s *InvoiceService) fetch(ctx context.Context, hostkitID string, period calculator.DateRange) ([]models.Invoice, error) {
	_, apiKey, err := s.resolve(ctx, hostkitID)
	if err != nil {
		return nil, err
	}
	from, to := fetchWindow(period, 0)
	invoices, err := s.client.GetInvoices(ctx, apiKey, strings.TrimSpace(hostkitID), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoices: %w", err)
	}
	return calculator.FilterInvoices(invoices, period), nil
}

// sanitizeFilename keeps invoice ids safe inside a Content-Disposition header.
func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}
