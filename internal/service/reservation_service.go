package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
)

// ReservationService lists Hostkit reservations.
type ReservationService struct {
	hostkitAccess
}

// NewReservationService creates a ReservationService.
func NewReservationService(store storage.PropertyStore, client HostkitClient, cfg HostkitConfig, logger *slog.Logger) *ReservationService {
	return &ReservationService{hostkitAccess: newHostkitAccess(store, client, cfg, logger)}
}

// ReservationList is the reservations of a property checking in within a period.
type ReservationList struct {
	PropertyID   string               `json:"property_id"`
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date"`
	Count        int                  `json:"count"`
	Reservations []models.Reservation `json:"reservations"`
}

// List returns the reservations checking in within the period, by check-in.
func (s *ReservationService) List(ctx context.Context, hostkitID, startDate, endDate string) (*ReservationList, error) {
	period, err := s.parsePeriod(startDate, endDate)
	if err != nil {
		return nil, err
	}
	_, apiKey, err := s.resolve(ctx, hostkitID)
	if err != nil {
		return nil, err
	}
	hostkitID = strings.TrimSpace(hostkitID)

	from, to := fetchWindow(period, 0)
	reservations, err := s.client.GetReservations(ctx, apiKey, hostkitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservations: %w", err)
	}
	reservations = calculator.FilterReservations(reservations, period, models.FilterCheckIn)

	return &ReservationList{
		PropertyID:   hostkitID,
		StartDate:    period.StartString(),
		EndDate:      period.EndString(),
		Count:        len(reservations),
		Reservations: reservations,
	}, nil
}
