// Package handler exposes the portal services as a JSON REST API.
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mmynk/ownerportal/internal/auth"
	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/service"
	"github.com/mmynk/ownerportal/internal/storage"
	"github.com/mmynk/ownerportal/internal/vendors/hostaway"
	"github.com/mmynk/ownerportal/internal/vendors/hostkit"
)

// Services are the portal services the API serves.
type Services struct {
	Auth         *service.AuthService
	Properties   *service.PropertyService
	Statements   *service.StatementService
	TouristTax   *service.TouristTaxService
	Invoices     *service.InvoiceService
	Reservations *service.ReservationService
	Bookings     *service.BookingService
	Reviews      *service.ReviewService
}

// Handler holds the HTTP handlers of the API.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

// New creates a Handler.
func New(svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf maps a service error to an HTTP status and error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, calculator.ErrInvalidDate),
		errors.Is(err, calculator.ErrInvalidDateRange),
		errors.Is(err, calculator.ErrInvalidCommission),
		errors.Is(err, calculator.ErrInvalidFilterType),
		errors.Is(err, models.ErrPropertyNameRequired),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidRoomCount),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidRole):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, hostkit.ErrMissingAPIKey):
		return http.StatusBadRequest, "MISSING_API_KEY"
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, auth.ErrEmailExists), errors.Is(err, storage.ErrDuplicate):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, hostkit.ErrUpstream), errors.Is(err, hostaway.ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	case errors.Is(err, hostaway.ErrNotConfigured):
		return http.StatusServiceUnavailable, "NOT_CONFIGURED"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// fail writes err as a JSON error. Server errors are logged and their
// message is hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
	case status == http.StatusBadGateway:
		h.logger.Warn("Vendor request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg, Code: code})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", service.ErrInvalidInput, name, raw)
	}
	return id, nil
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
