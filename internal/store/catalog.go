package store

import (
	"context"
	"database/sql"
	"errors"

	"inventory-service/internal/models"
)

// GetProductRef retrieves the read-only product reference, or nil if absent.
func (s *Store) GetProductRef(ctx context.Context, id int64) (*models.ProductRef, error) {
	var p models.ProductRef
	err := s.db.GetContext(ctx, &p,
		"SELECT id, sku, name, is_serialized FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetWarehouseRef retrieves the read-only warehouse reference, or nil if absent.
func (s *Store) GetWarehouseRef(ctx context.Context, id int64) (*models.WarehouseRef, error) {
	var w models.WarehouseRef
	err := s.db.GetContext(ctx, &w,
		"SELECT id, name, is_active FROM warehouses WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// SupplierExists checks supplier existence.
func (s *Store) SupplierExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1)", id)
	return exists, err
}
