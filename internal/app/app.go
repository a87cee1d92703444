// Package app wires storage, vendor clients and services from the config.
// Both the API server and the portalctl CLI start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/ownerportal/internal/auth"
	"github.com/mmynk/ownerportal/internal/calculator"
	"github.com/mmynk/ownerportal/internal/config"
	"github.com/mmynk/ownerportal/internal/handler"
	"github.com/mmynk/ownerportal/internal/service"
	"github.com/mmynk/ownerportal/internal/storage"
	"github.com/mmynk/ownerportal/internal/storage/mongo"
	"github.com/mmynk/ownerportal/internal/storage/sqlite"
	"github.com/mmynk/ownerportal/internal/vendors/hostaway"
	"github.com/mmynk/ownerportal/internal/vendors/hostkit"
)

// App is a fully wired portal.
type App struct {
	Config   *config.Config
	Store    storage.Store
	JWT      *auth.JWTManager
	Services handler.Services

	redis  *redis.Client
	logger *slog.Logger
}

// Open connects the store (and Redis when configured) and builds every service.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Storage initialized", "driver", cfg.StorageDriver)

	a := &App{
		Config: cfg,
		Store:  store,
		JWT:    auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		logger: logger,
	}

	var otps auth.OTPStore = auth.NewMemoryOTPStore()
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		otps = auth.NewRedisOTPStore(a.redis)
		logger.Info("OTP codes stored in Redis", "addr", cfg.RedisAddr)
	}

	var mailer auth.Mailer = auth.NewLogMailer(logger)
	if cfg.SMTPHost != "" {
		mailer = auth.NewSMTPMailer(auth.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
		})
	}

	formatter, err := calculator.NewFormatter(cfg.CurrencyLocale, "EUR")
	if err != nil {
		logger.Warn("Unknown currency locale, using plain amounts", "locale", cfg.CurrencyLocale, "error", err)
		formatter = nil
	}

	kit := hostkit.New(hostkit.Config{
		BaseURL:  cfg.HostkitBaseURL,
		Timeout:  cfg.VendorTimeout,
		Location: cfg.Location,
		Logger:   logger.With("vendor", "hostkit"),
	})
	away := hostaway.New(hostaway.Config{
		BaseURL:      cfg.HostawayBaseURL,
		ClientID:     cfg.HostawayClientID,
		ClientSecret: cfg.HostawayClientSecret,
		Timeout:      cfg.VendorTimeout,
		Logger:       logger.With("vendor", "hostaway"),
	})
	if !away.Configured() {
		logger.Warn("Hostaway credentials missing, bookings and reviews are disabled")
	}

	hk := service.HostkitConfig{FallbackAPIKey: cfg.HostkitAPIKey, Location: cfg.Location}
	rules := calculator.TouristTaxRules{AdultAge: cfg.TouristTaxAdultAge, MaxNights: cfg.TouristTaxMaxNights}

	a.Services = handler.Services{
		Auth: service.NewAuthService(auth.NewPasswordAuthenticator(store), a.JWT, store, service.AuthConfig{
			OTPStore: otps,
			Mailer:   mailer,
			OTPTTL:   cfg.OTPTTL,
		}, logger),
		Properties:   service.NewPropertyService(store, logger),
		Statements:   service.NewStatementService(store, kit, hk, cfg.DefaultCommission, logger),
		TouristTax:   service.NewTouristTaxService(store, kit, hk, rules, formatter, logger),
		Invoices:     service.NewInvoiceService(store, kit, hk, logger),
		Reservations: service.NewReservationService(store, kit, hk, logger),
		Bookings:     service.NewBookingService(store, away, logger),
		Reviews:      service.NewReviewService(store, away, logger),
	}
	return a, nil
}

// OpenStore opens the storage backend named by STORAGE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.DriverMongo {
		store, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Close releases the store and the Redis connection.
func (a *App) Close() error {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis", "error", err)
		}
	}
	return a.Store.Close()
}
