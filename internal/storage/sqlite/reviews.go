package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/ownerportal/internal/models"
)

// UpsertReviews inserts or replaces reviews in a single transaction.
func (s *SQLiteStore) UpsertReviews(ctx context.Context, reviews []models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reviews (id, property_id, listing_id, guest_name, rating, public_review, channel, submitted_at, synced_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			listing_id = excluded.listing_id,
			guest_name = excluded.guest_name,
			rating = excluded.rating,
			public_review = excluded.public_review,
			channel = excluded.channel,
			submitted_at = excluded.submitted_at,
			synced_at = excluded.synced_at`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare review upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range reviews {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.PropertyID, r.ListingID, r.GuestName, r.Rating, r.PublicReview, r.Channel, r.SubmittedAt, r.SyncedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert review %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListReviewsByProperty returns a property's reviews, newest first.
func (s *SQLiteStore) ListReviewsByProperty(ctx context.Context, propertyID int64) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, property_id, listing_id, guest_name, rating, public_review, channel, submitted_at, synced_at
		 FROM reviews WHERE property_id = ? ORDER BY submitted_at DESC, id DESC`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.PropertyID, &r.ListingID, &r.GuestName, &r.Rating,
			&r.PublicReview, &r.Channel, &r.SubmittedAt, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}
