// Package hostkit is a client for the Hostkit REST API. Every call is
// authenticated with the API key of the property it concerns.
package hostkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/ownerportal/internal/metrics"
	"github.com/mmynk/ownerportal/internal/models"
)

const (
	DefaultBaseURL = "https://app.hostkit.pt/api"

	// maxBodySize bounds list responses read into memory.
	maxBodySize = 32 << 20
)

var (
	ErrMissingAPIKey = errors.New("hostkit API key is not configured for this property")
	ErrUpstream      = errors.New("hostkit request failed")
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Location is used to read ISO dates that carry no zone.
	Location *time.Location

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client calls the Hostkit API.
type Client struct {
	baseURL string
	http    *http.Client
	loc     *time.Location
	logger  *slog.Logger
}

// New creates a Hostkit client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		loc:     cfg.Location,
		logger:  cfg.Logger,
	}
}

// GetReservations lists reservations for a property between from and to.
func (c *Client) GetReservations(ctx context.Context, apiKey, propertyID string, from, to time.Time) ([]models.Reservation, error) {
	return c.reservations(ctx, "getReservations", apiKey, propertyID, from, to)
}

// GetBookings lists reservations through the older bookings endpoint.
// It returns the same records and is used when getReservations fails.
func (c *Client) GetBookings(ctx context.Context, apiKey, propertyID string, from, to time.Time) ([]models.Reservation, error) {
	return c.reservations(ctx, "getBookings", apiKey, propertyID, from, to)
}

func (c *Client) reservations(ctx context.Context, endpoint, apiKey, propertyID string, from, to time.Time) ([]models.Reservation, error) {
	params := url.Values{}
	params.Set("property_id", propertyID)
	params.Set("date_from", strconv.FormatInt(from.Unix(), 10))
	params.Set("date_to", strconv.FormatInt(to.Unix(), 10))

	body, err := c.get(ctx, endpoint, apiKey, params)
	if err != nil {
		return nil, err
	}
	wire, err := decodeList[wireReservation](body, "reservations", "bookings")
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", ErrUpstream, endpoint, err)
	}

	out := make([]models.Reservation, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toModel(c.loc))
	}
	c.logger.Debug("Hostkit reservations fetched", "endpoint", endpoint, "property_id", propertyID, "count", len(out))
	return out, nil
}

// GetInvoices lists invoices for a property issued between from and to.
func (c *Client) GetInvoices(ctx context.Context, apiKey, propertyID string, from, to time.Time) ([]models.Invoice, error) {
	params := url.Values{}
	params.Set("property_id", propertyID)
	params.Set("date_from", from.In(c.loc).Format("2006-01-02"))
	params.Set("date_to", to.In(c.loc).Format("2006-01-02"))

	body, err := c.get(ctx, "getInvoices", apiKey, params)
	if err != nil {
		return nil, err
	}
	wire, err := decodeList[wireInvoice](body, "invoices")
	if err != nil {
		return nil, fmt.Errorf("%w: decode getInvoices response: %v", ErrUpstream, err)
	}

	out := make([]models.Invoice, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toModel(c.loc))
	}
	c.logger.Debug("Hostkit invoices fetched", "property_id", propertyID, "count", len(out))
	return out, nil
}

// Download opens an invoice document. The caller must close the body.
func (c *Client) Download(ctx context.Context, invoiceURL string) (io.ReadCloser, string, error) {
	u, err := url.Parse(invoiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("%w: invalid invoice url", ErrUpstream)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveVendor("hostkit", "invoice_download", 0)
		return nil, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	metrics.ObserveVendor("hostkit", "invoice_download", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("%w: invoice download returned %d", ErrUpstream, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return resp.Body, contentType, nil
}

func (c *Client) get(ctx context.Context, endpoint, apiKey string, params url.Values) ([]byte, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	params.Set("APIKEY", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveVendor("hostkit", endpoint, 0)
		c.logger.Warn("Hostkit request failed", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()
	metrics.ObserveVendor("hostkit", endpoint, resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrUpstream, endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Hostkit returned an error status",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstream, endpoint, resp.StatusCode)
	}
	return body, nil
}
