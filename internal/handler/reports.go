package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/ownerportal/internal/service"
)

// OwnerStatement handles GET /api/owner-statements/{hostkitId}.
func (h *Handler) OwnerStatement(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Statements.Generate(r.Context(), service.StatementRequest{
		HostkitID:            chi.URLParam(r, "hostkitId"),
		StartDate:            query(r, "startDate"),
		EndDate:              query(r, "endDate"),
		CommissionPercentage: query(r, "commissionPercentage"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, st)
}

// TouristTax handles GET /api/tourist-tax/{hostkitId}.
func (h *Handler) TouristTax(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.TouristTax.Report(r.Context(), service.TouristTaxRequest{
		HostkitID:  chi.URLParam(r, "hostkitId"),
		StartDate:  query(r, "startDate"),
		EndDate:    query(r, "endDate"),
		FilterType: query(r, "filterType"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, report)
}

// Reservations handles GET /api/reservations/{hostkitId}.
func (h *Handler) Reservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Reservations.List(r.Context(), chi.URLParam(r, "hostkitId"), query(r, "startDate"), query(r, "endDate"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, list)
}

// Invoices handles GET /api/invoices/{hostkitId}.
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Invoices.List(r.Context(), chi.URLParam(r, "hostkitId"), query(r, "startDate"), query(r, "endDate"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, list)
}

// DownloadInvoice handles GET /api/invoices/{hostkitId}/{invoiceId}/download
// and streams the vendor document through.
func (h *Handler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Invoices.Download(r.Context(),
		chi.URLParam(r, "hostkitId"),
		chi.URLParam(r, "invoiceId"),
		query(r, "startDate"),
		query(r, "endDate"),
	)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer doc.Body.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, doc.Body); err != nil {
		h.logger.Warn("Invoice stream interrupted", "filename", doc.Filename, "error", err)
	}
}

// Bookings handles GET /api/bookings.
func (h *Handler) Bookings(w http.ResponseWriter, r *http.Request) {
	q := service.BookingQuery{
		StartDate: query(r, "startDate"),
		EndDate:   query(r, "endDate"),
	}
	if raw := query(r, "propertyId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.fail(w, r, fmt.Errorf("%w: invalid propertyId %q", service.ErrInvalidInput, raw))
			return
		}
		q.PropertyID = id
	}
	bookings, err := h.svc.Bookings.Bookings(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, bookings)
}

// Listings handles GET /api/listings.
func (h *Handler) Listings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.Bookings.Listings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, listings)
}
