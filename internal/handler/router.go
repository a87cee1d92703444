package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/ownerportal/internal/auth"
	"github.com/mmynk/ownerportal/internal/middleware"
	"github.com/mmynk/ownerportal/internal/models"
)

// RouterConfig holds the router settings that do not come from the services.
type RouterConfig struct {
	// CORSOrigins lists the allowed browser origins. Empty allows any.
	CORSOrigins []string

	// RequestTimeout bounds every API request. Zero disables it.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// NewRouter builds the HTTP routes of the portal.
func NewRouter(h *Handler, jwtManager *auth.JWTManager, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		if cfg.RequestTimeout > 0 {
			api.Use(chimw.Timeout(cfg.RequestTimeout))
		}

		// ---- Public routes ----
		api.Group(func(pub chi.Router) {
			pub.Post("/auth/login", h.Login)
			pub.Post("/auth/otp/verify", h.VerifyOTP)
			// The first account registers without a token.
			pub.With(middleware.OptionalAuth(jwtManager)).Post("/auth/register", h.Register)
		})

		// ---- Authenticated routes ----
		api.Group(func(priv chi.Router) {
			priv.Use(middleware.RequireAuth(jwtManager))

			priv.Get("/auth/me", h.Me)

			priv.Route("/properties", func(p chi.Router) {
				p.Get("/", h.ListProperties)
				p.With(middleware.RequireRole(models.RoleAdmin)).Post("/", h.CreateProperty)
				p.Get("/{id}", h.GetProperty)
				p.Put("/{id}", h.UpdateProperty)
				p.With(middleware.RequireRole(models.RoleAdmin)).Delete("/{id}", h.DeleteProperty)
				p.With(middleware.RequireRole(models.RoleAdmin)).Patch("/{id}/status", h.SetPropertyStatus)
				p.Get("/{id}/reviews", h.PropertyReviews)
			})

			priv.Get("/bookings", h.Bookings)
			priv.Get("/reservations/{hostkitId}", h.Reservations)
			priv.Get("/invoices/{hostkitId}", h.Invoices)
			priv.Get("/invoices/{hostkitId}/{invoiceId}/download", h.DownloadInvoice)
			priv.Get("/tourist-tax/{hostkitId}", h.TouristTax)
			priv.Get("/owner-statements/{hostkitId}", h.OwnerStatement)

			// ---- Admin routes ----
			priv.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(models.RoleAdmin))
				admin.Get("/users", h.ListUsers)
				admin.Get("/listings", h.Listings)
				admin.Post("/reviews/sync", h.SyncReviews)
			})
		})
	})

	return r
}
