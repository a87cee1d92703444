// Package config loads portal settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Config holds every setting the binaries read.
type Config struct {
	Port string

	StorageDriver string
	DBPath        string
	MongoURI      string
	MongoDatabase string

	JWTSecret string
	JWTTTL    time.Duration

	HostkitBaseURL string
	// HostkitAPIKey is used for properties that have no key of their own.
	HostkitAPIKey string

	HostawayBaseURL      string
	HostawayClientID     string
	HostawayClientSecret string

	VendorTimeout time.Duration
	Location      *time.Location

	DefaultCommission   decimal.Decimal
	TouristTaxAdultAge  int
	TouristTaxMaxNights int
	CurrencyLocale      string

	RedisAddr     string
	RedisPassword string
	OTPTTL        time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string

	CORSOrigins []string
}

// Load reads .env (if present) and the environment. Malformed values are
// reported rather than silently replaced by defaults.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		StorageDriver:        strings.ToLower(getEnv("STORAGE_DRIVER", DriverSQLite)),
		DBPath:               getEnv("DB_PATH", "./data/portal.db"),
		MongoURI:             getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:        getEnv("MONGO_DATABASE", "ownerportal"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTTTL:               getDuration("JWT_TTL", 24*time.Hour, &errs),
		HostkitBaseURL:       getEnv("HOSTKIT_BASE_URL", "https://app.hostkit.pt/api"),
		HostkitAPIKey:        os.Getenv("HOSTKIT_API_KEY"),
		HostawayBaseURL:      getEnv("HOSTAWAY_BASE_URL", "https://api.hostaway.com"),
		HostawayClientID:     os.Getenv("HOSTAWAY_CLIENT_ID"),
		HostawayClientSecret: os.Getenv("HOSTAWAY_CLIENT_SECRET"),
		VendorTimeout:        getDuration("VENDOR_TIMEOUT", 15*time.Second, &errs),
		DefaultCommission:    getDecimal("DEFAULT_COMMISSION_PERCENTAGE", decimal.NewFromInt(20), &errs),
		TouristTaxAdultAge:   getInt("TOURIST_TAX_ADULT_AGE", 13, &errs),
		TouristTaxMaxNights:  getInt("TOURIST_TAX_MAX_NIGHTS", 7, &errs),
		CurrencyLocale:       getEnv("CURRENCY_LOCALE", "pt-PT"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		OTPTTL:               getDuration("OTP_TTL", 5*time.Minute, &errs),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getEnv("SMTP_PORT", "465"),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "*")),
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Europe/Lisbon"))
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
		loc = time.UTC
	}
	cfg.Location = loc

	if cfg.StorageDriver != DriverSQLite && cfg.StorageDriver != DriverMongo {
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.StorageDriver))
	}
	if cfg.DefaultCommission.IsNegative() || cfg.DefaultCommission.GreaterThan(decimal.NewFromInt(100)) {
		errs = append(errs, fmt.Errorf("DEFAULT_COMMISSION_PERCENTAGE: %s is outside [0, 100]", cfg.DefaultCommission))
	}
	if cfg.TouristTaxMaxNights < 0 {
		errs = append(errs, errors.New("TOURIST_TAX_MAX_NIGHTS cannot be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RequireJWTSecret checks the setting only the API server needs.
func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getDecimal(key string, fallback decimal.Decimal, errs *[]error) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
