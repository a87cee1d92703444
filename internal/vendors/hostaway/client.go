// Package hostaway is a client for the Hostaway public API.
//
// Access tokens are obtained with the OAuth2 client-credentials grant and
// refreshed by the transport. Listing and review lookups are cached for a
// few minutes since they change rarely and are shown on every dashboard load.
package hostaway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/karlseguin/ccache/v3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/mmynk/ownerportal/internal/metrics"
	"github.com/mmynk/ownerportal/internal/models"
)

const (
	DefaultBaseURL = "https://api.hostaway.com"

	cacheTTL    = 5 * time.Minute
	maxBodySize = 32 << 20
)

var (
	ErrNotConfigured = errors.New("hostaway credentials are not configured")
	ErrUpstream      = errors.New("hostaway request failed")
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Client calls the Hostaway API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	listings *ccache.Cache[[]models.HostawayListing]
	reviews  *ccache.Cache[[]Review]
}

// New creates a Hostaway client. Without credentials every call returns
// ErrNotConfigured.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		baseURL:  baseURL,
		logger:   cfg.Logger,
		listings: ccache.New(ccache.Configure[[]models.HostawayListing]().MaxSize(100)),
		reviews:  ccache.New(ccache.Configure[[]Review]().MaxSize(1000)),
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return c
	}

	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/v1/accessTokens",
		Scopes:       []string{"general"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// The token source outlives any single request.
	base := &http.Client{Timeout: cfg.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	c.http = creds.Client(ctx)
	c.http.Timeout = cfg.Timeout
	return c
}

// Configured reports whether credentials were provided.
func (c *Client) Configured() bool {
	return c.http != nil
}

// Listings returns every listing on the account.
func (c *Client) Listings(ctx context.Context) ([]models.HostawayListing, error) {
	item, err := c.listings.Fetch("all", cacheTTL, func() ([]models.HostawayListing, error) {
		var listings []models.HostawayListing
		if err := c.get(ctx, "/v1/listings", url.Values{"limit": {"500"}}, &listings); err != nil {
			return nil, err
		}
		return listings, nil
	})
	if err != nil {
		return nil, err
	}
	return item.Value(), nil
}

// Reservations returns the reservations of a listing arriving between from
// and to (inclusive, YYYY-MM-DD).
func (c *Client) Reservations(ctx context.Context, listingID int64, from, to string) ([]models.HostawayReservation, error) {
	params := url.Values{}
	params.Set("listingId", strconv.FormatInt(listingID, 10))
	if from != "" {
		params.Set("arrivalStartDate", from)
	}
	if to != "" {
		params.Set("arrivalEndDate", to)
	}
	params.Set("limit", "500")

	var reservations []models.HostawayReservation
	if err := c.get(ctx, "/v1/reservations", params, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

// Review mirrors a Hostaway review.
type Review struct {
	ID           int64  `json:"id"`
	ListingID    int64  `json:"listingMapId"`
	GuestName    string `json:"guestName"`
	Rating       *int   `json:"rating"`
	PublicReview string `json:"publicReview"`
	Channel      string `json:"channelName"`
	SubmittedAt  string `json:"submittedAt"`
}

// ToModel converts the review for storage under a local property.
func (r Review) ToModel(propertyID int64, syncedAt time.Time) models.Review {
	m := models.Review{
		ID:           r.ID,
		PropertyID:   propertyID,
		ListingID:    r.ListingID,
		GuestName:    r.GuestName,
		PublicReview: r.PublicReview,
		Channel:      r.Channel,
		SyncedAt:     syncedAt.Unix(),
	}
	if r.Rating != nil {
		m.Rating = *r.Rating
	}
	if t, err := time.Parse("2006-01-02 15:04:05", r.SubmittedAt); err == nil {
		m.SubmittedAt = t.Unix()
	}
	return m
}

// Reviews returns the reviews left on a listing.
func (c *Client) Reviews(ctx context.Context, listingID int64) ([]Review, error) {
	key := strconv.FormatInt(listingID, 10)
	item, err := c.reviews.Fetch(key, cacheTTL, func() ([]Review, error) {
		var reviews []Review
		params := url.Values{"listingMapId": {key}, "limit": {"500"}}
		if err := c.get(ctx, "/v1/reviews", params, &reviews); err != nil {
			return nil, err
		}
		return reviews, nil
	})
	if err != nil {
		return nil, err
	}
	return item.Value(), nil
}

// Invalidate drops cached lookups so the next call hits the API.
func (c *Client) Invalidate() {
	c.listings.Clear()
	c.reviews.Clear()
}

// envelope is the wrapper every Hostaway response uses.
type envelope struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.http == nil {
		return ErrNotConfigured
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Cache-control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveVendor("hostaway", path, 0)
		c.logger.Warn("Hostaway request failed", "path", path, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrUpstream, path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveVendor("hostaway", path, resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrUpstream, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Hostaway returned an error status", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: %s returned %d", ErrUpstream, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUpstream, path, err)
	}
	if env.Status != "success" {
		return fmt.Errorf("%w: %s: %s", ErrUpstream, path, env.Message)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: decoding %s result: %v", ErrUpstream, path, err)
	}
	return nil
}
