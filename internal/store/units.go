package store

import (
	"context"
	"database/sql"
	"errors"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// SerialInUse checks whether a serial number or IMEI is already taken by a
// non-deleted unit. Tombstoned units do not block reuse.
func (s *Store) SerialInUse(ctx context.Context, tx *sqlx.Tx, serialNumber string, imei1 *string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM serialized_units
			WHERE is_deleted = FALSE
			  AND (serial_number = $1 OR ($2::text IS NOT NULL AND imei1 = $2))
		)`, serialNumber, imei1)
	return exists, err
}

// InsertUnit creates a serialized unit. The partial unique indexes on
// serial_number and imei1 are the backstop for a racing duplicate.
func (s *Store) InsertUnit(ctx context.Context, tx *sqlx.Tx, unit *models.SerializedUnit) error {
	query := `
		INSERT INTO serialized_units
			(serial_number, imei1, product_id, warehouse_id, status, import_price, import_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return tx.GetContext(ctx, unit, query,
		unit.SerialNumber, unit.IMEI1, unit.ProductID, unit.WarehouseID,
		unit.Status, unit.ImportPrice, unit.ImportDate, unit.Notes)
}

// GetUnitByID retrieves a unit. includeDeleted makes the tombstone decision
// explicit at the call site.
func (s *Store) GetUnitByID(ctx context.Context, id int64, includeDeleted bool) (*models.SerializedUnit, error) {
	var unit models.SerializedUnit
	err := s.db.GetContext(ctx, &unit,
		"SELECT * FROM serialized_units WHERE id = $1 AND (is_deleted = FALSE OR $2)",
		id, includeDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// LockUnit reads a non-deleted unit under FOR UPDATE so a status transition
// cannot race another.
func (s *Store) LockUnit(ctx context.Context, tx *sqlx.Tx, id int64) (*models.SerializedUnit, error) {
	var unit models.SerializedUnit
	err := tx.GetContext(ctx, &unit,
		"SELECT * FROM serialized_units WHERE id = $1 AND is_deleted = FALSE FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// UpdateUnitStatus persists a status transition. warehouseID and
// destWarehouseID overwrite the stored values as given; callers decide when
// they change (only the TRANSFERRING edges touch them).
func (s *Store) UpdateUnitStatus(ctx context.Context, tx *sqlx.Tx, id int64, status string, warehouseID int64, destWarehouseID *int64, notes string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE serialized_units
		SET status = $1, warehouse_id = $2, dest_warehouse_id = $3, notes = $4, updated_at = NOW()
		WHERE id = $5`,
		status, warehouseID, destWarehouseID, notes, id)
	return err
}

// SoftDeleteUnit tombstones a unit. Units referenced by transactions are
// never hard-deleted.
func (s *Store) SoftDeleteUnit(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE serialized_units SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1", id)
	return err
}

// UnitFilter narrows ListUnits. Zero values mean "no filter".
type UnitFilter struct {
	WarehouseID int64
	ProductID   int64
	Status      string
	Limit       int
	Offset      int
}

// ListUnits retrieves non-deleted units matching the filter.
func (s *Store) ListUnits(ctx context.Context, f UnitFilter) ([]models.SerializedUnit, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT * FROM serialized_units
		WHERE is_deleted = FALSE
		  AND ($1 = 0 OR warehouse_id = $1)
		  AND ($2 = 0 OR product_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY id
		LIMIT $4 OFFSET $5`

	units := []models.SerializedUnit{}
	err := s.db.SelectContext(ctx, &units, query, f.WarehouseID, f.ProductID, f.Status, limit, f.Offset)
	return units, err
}
