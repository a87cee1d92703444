package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
	"github.com/mmynk/ownerportal/internal/vendors/hostaway"
)

// ReviewService syncs guest reviews from Hostaway and serves them from the store.
type ReviewService struct {
	store  storage.Store
	client HostawayClient
	logger *slog.Logger
	now    func() time.Time
}

// NewReviewService creates a ReviewService.
func NewReviewService(store storage.Store, client HostawayClient, logger *slog.Logger) *ReviewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewService{store: store, client: client, logger: logger, now: time.Now}
}

// SyncResult summarizes a review sync.
type SyncResult struct {
	Properties int `json:"properties"`
	Reviews    int `json:"reviews"`
	Failed     int `json:"failed"`
}

// Sync fetches the reviews of every property linked to a Hostaway listing
// and upserts them. A listing that fails is counted and skipped. Admin only.
func (s *ReviewService) Sync(ctx context.Context) (*SyncResult, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	properties, err := s.store.ListProperties(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}
	syncedAt := s.now()
	for _, p := range properties {
		if p.HostawayListingID == 0 {
			continue
		}
		result.Properties++

		fetched, err := s.client.Reviews(ctx, p.HostawayListingID)
		if errors.Is(err, hostaway.ErrNotConfigured) {
			return nil, err
		}
		if err != nil {
			s.logger.Warn("Review sync failed for listing", "property_id", p.ID, "listing_id", p.HostawayListingID, "error", err)
			result.Failed++
			continue
		}

		reviews := make([]models.Review, 0, len(fetched))
		for _, r := range fetched {
			reviews = append(reviews, r.ToModel(p.ID, syncedAt))
		}
		if err := s.store.UpsertReviews(ctx, reviews); err != nil {
			return nil, err
		}
		result.Reviews += len(reviews)
	}

	s.logger.Info("Review sync finished",
		"properties", result.Properties,
		"reviews", result.Reviews,
		"failed", result.Failed,
	)
	return result, nil
}

// ReviewList is the stored reviews of a property.
type ReviewList struct {
	PropertyID int64 `json:"property_id"`
	Count      int   `json:"count"`

	// AverageRating is over rated reviews only, rounded to two decimals.
	AverageRating decimal.Decimal `json:"average_rating"`

	Reviews []models.Review `json:"reviews"`
}

// List returns a property's reviews, newest first, with the average rating.
func (s *ReviewService) List(ctx context.Context, propertyID int64) (*ReviewList, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !canView(caller.Role, caller.UserID, p) {
		return nil, ErrForbidden
	}

	reviews, err := s.store.ListReviewsByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return &ReviewList{
		PropertyID:    propertyID,
		Count:         len(reviews),
		AverageRating: AverageRating(reviews),
		Reviews:       reviews,
	}, nil
}

// AverageRating averages the ratings above zero. Unrated reviews are ignored.
func AverageRating(reviews []models.Review) decimal.Decimal {
	sum, n := 0, 0
	for _, r := range reviews {
		if r.Rating > 0 {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(sum)).DivRound(decimal.NewFromInt(int64(n)), 2)
}
