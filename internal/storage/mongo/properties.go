package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
)

var byName = options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})

// CreateProperty allocates an id from the properties sequence and inserts the document.
func (s *MongoStore) CreateProperty(ctx context.Context, p *models.Property) error {
	id, err := s.nextID(ctx, propertiesCollection)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.ID = id

	_, err = s.db.Collection(propertiesCollection).InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		p.ID = 0
		return fmt.Errorf("hostkit id %s: %w", p.HostkitID, storage.ErrDuplicate)
	}
	if err != nil {
		p.ID = 0
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

// GetProperty retrieves a property by ID.
func (s *MongoStore) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	var p models.Property
	if err := s.db.Collection(propertiesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err, fmt.Sprintf("property %d", id))
	}
	return &p, nil
}

// GetPropertyByHostkitID retrieves a property by its Hostkit identifier.
func (s *MongoStore) GetPropertyByHostkitID(ctx context.Context, hostkitID string) (*models.Property, error) {
	if hostkitID == "" {
		return nil, fmt.Errorf("property with empty hostkit id: %w", storage.ErrNotFound)
	}
	var p models.Property
	if err := s.db.Collection(propertiesCollection).FindOne(ctx, bson.M{"hostkit_id": hostkitID}).Decode(&p); err != nil {
		return nil, notFound(err, "property with hostkit id "+hostkitID)
	}
	return &p, nil
}

// ListProperties returns every property ordered by name.
func (s *MongoStore) ListProperties(ctx context.Context) ([]*models.Property, error) {
	return s.findProperties(ctx, bson.M{})
}

// ListPropertiesByOwner returns the properties owned by a user.
func (s *MongoStore) ListPropertiesByOwner(ctx context.Context, ownerID string) ([]*models.Property, error) {
	return s.findProperties(ctx, bson.M{"owner_id": ownerID})
}

// UpdateProperty replaces the stored document.
func (s *MongoStore) UpdateProperty(ctx context.Context, p *models.Property) error {
	p.UpdatedAt = time.Now().Unix()
	res, err := s.db.Collection(propertiesCollection).ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("hostkit id %s: %w", p.HostkitID, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("property %d: %w", p.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteProperty removes a property and its reviews.
func (s *MongoStore) DeleteProperty(ctx context.Context, id int64) error {
	res, err := s.db.Collection(propertiesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("property %d: %w", id, storage.ErrNotFound)
	}
	if _, err := s.db.Collection(reviewsCollection).DeleteMany(ctx, bson.M{"property_id": id}); err != nil {
		return fmt.Errorf("failed to delete reviews of property %d: %w", id, err)
	}
	return nil
}

func (s *MongoStore) findProperties(ctx context.Context, filter bson.M) ([]*models.Property, error) {
	cur, err := s.db.Collection(propertiesCollection).Find(ctx, filter, byName)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	properties := []*models.Property{}
	if err := cur.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return properties, nil
}
