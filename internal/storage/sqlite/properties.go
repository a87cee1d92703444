package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/storage"
)

const propertyColumns = `id, name, address, type, bedrooms, bathrooms, hostkit_id, hostkit_api_key,
	hostaway_listing_id, owner_id, is_admin_owned, status, created_at, updated_at`

// CreateProperty persists a new property to the database.
func (s *SQLiteStore) CreateProperty(ctx context.Context, p *models.Property) error {
	now := time.Now().Unix()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (name, address, type, bedrooms, bathrooms, hostkit_id, hostkit_api_key,
			hostaway_listing_id, owner_id, is_admin_owned, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Address, p.Type, p.Bedrooms, p.Bathrooms, nullable(p.HostkitID), p.HostkitAPIKey,
		p.HostawayListingID, nullable(p.OwnerID), p.IsAdminOwned, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("hostkit id %s: %w", p.HostkitID, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read property id: %w", err)
	}
	p.ID = id
	return nil
}

// GetProperty retrieves a property by ID.
func (s *SQLiteStore) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

// GetPropertyByHostkitID retrieves a property by its Hostkit identifier.
func (s *SQLiteStore) GetPropertyByHostkitID(ctx context.Context, hostkitID string) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE hostkit_id = ?`, hostkitID)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property with hostkit id %s: %w", hostkitID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property by hostkit id: %w", err)
	}
	return p, nil
}

// ListProperties returns every property ordered by name.
func (s *SQLiteStore) ListProperties(ctx context.Context) ([]*models.Property, error) {
	return s.queryProperties(ctx, `SELECT `+propertyColumns+` FROM properties ORDER BY name, id`)
}

// ListPropertiesByOwner returns the properties owned by a user.
func (s *SQLiteStore) ListPropertiesByOwner(ctx context.Context, ownerID string) ([]*models.Property, error) {
	return s.queryProperties(ctx, `SELECT `+propertyColumns+` FROM properties WHERE owner_id = ? ORDER BY name, id`, ownerID)
}

// UpdateProperty overwrites every mutable column of a property.
func (s *SQLiteStore) UpdateProperty(ctx context.Context, p *models.Property) error {
	p.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE properties SET name = ?, address = ?, type = ?, bedrooms = ?, bathrooms = ?,
			hostkit_id = ?, hostkit_api_key = ?, hostaway_listing_id = ?, owner_id = ?,
			is_admin_owned = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Address, p.Type, p.Bedrooms, p.Bathrooms,
		nullable(p.HostkitID), p.HostkitAPIKey, p.HostawayListingID, nullable(p.OwnerID),
		p.IsAdminOwned, p.Status, p.UpdatedAt, p.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("hostkit id %s: %w", p.HostkitID, storage.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	return requireAffected(res, "property", p.ID)
}

// DeleteProperty removes a property. Its reviews are removed by cascade.
func (s *SQLiteStore) DeleteProperty(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	return requireAffected(res, "property", id)
}

func (s *SQLiteStore) queryProperties(ctx context.Context, query string, args ...any) ([]*models.Property, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	properties := []*models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate properties: %w", err)
	}
	return properties, nil
}

func scanProperty(row scanner) (*models.Property, error) {
	p := &models.Property{}
	var hostkitID, ownerID sql.NullString
	err := row.Scan(
		&p.ID, &p.Name, &p.Address, &p.Type, &p.Bedrooms, &p.Bathrooms,
		&hostkitID, &p.HostkitAPIKey, &p.HostawayListingID, &ownerID,
		&p.IsAdminOwned, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.HostkitID = hostkitID.String
	p.OwnerID = ownerID.String
	return p, nil
}

func requireAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check %s update: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
