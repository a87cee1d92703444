package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/ownerportal/internal/models"
)

// UpsertReviews replaces reviews by id, inserting the ones not yet stored.
func (s *MongoStore) UpsertReviews(ctx context.Context, reviews []models.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(reviews))
	for _, r := range reviews {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetReplacement(r).
			SetUpsert(true))
	}
	if _, err := s.db.Collection(reviewsCollection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert reviews: %w", err)
	}
	return nil
}

// ListReviewsByProperty returns a property's reviews, newest first.
func (s *MongoStore) ListReviewsByProperty(ctx context.Context, propertyID int64) ([]models.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.db.Collection(reviewsCollection).Find(ctx, bson.M{"property_id": propertyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	reviews := []models.Review{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return reviews, nil
}
