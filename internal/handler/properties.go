package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/service"
)

type statusRequest struct {
	Status models.PropertyStatus `json:"status"`
}

// ListProperties handles GET /api/properties.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.svc.Properties.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, properties)
}

// CreateProperty handles POST /api/properties.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var in service.PropertyInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Properties.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, p)
}

// GetProperty handles GET /api/properties/{id}.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Properties.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, p)
}

// UpdateProperty handles PUT /api/properties/{id}.
func (h *Handler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in service.PropertyInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Properties.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, p)
}

// SetPropertyStatus handles PATCH /api/properties/{id}/status.
func (h *Handler) SetPropertyStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Properties.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, p)
}

// DeleteProperty handles DELETE /api/properties/{id}.
func (h *Handler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Properties.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// PropertyReviews handles GET /api/properties/{id}/reviews.
func (h *Handler) PropertyReviews(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.svc.Reviews.List(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, list)
}

// SyncReviews handles POST /api/reviews/sync.
func (h *Handler) SyncReviews(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Reviews.Sync(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, result)
}
