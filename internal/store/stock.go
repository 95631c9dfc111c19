package store

import (
	"context"
	"database/sql"
	"errors"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetStockRow retrieves the stock row for a key, or nil if the key has never
// seen a movement (treated by callers as onHand=0, reserved=0).
func (s *Store) GetStockRow(ctx context.Context, warehouseID, productID, variantID int64) (*models.StockRow, error) {
	var row models.StockRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM stock_rows WHERE warehouse_id = $1 AND product_id = $2 AND variant_id = $3",
		warehouseID, productID, variantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LockStockRow reads the stock row for a key under FOR UPDATE so that two
// concurrent mutations against the same key serialize at the database.
// Returns nil if the row does not exist yet.
func (s *Store) LockStockRow(ctx context.Context, tx *sqlx.Tx, warehouseID, productID, variantID int64) (*models.StockRow, error) {
	var row models.StockRow
	err := tx.GetContext(ctx, &row,
		"SELECT * FROM stock_rows WHERE warehouse_id = $1 AND product_id = $2 AND variant_id = $3 FOR UPDATE",
		warehouseID, productID, variantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertStockRow creates a stock row on first movement. The unique index on
// (warehouse_id, product_id, variant_id) rejects a concurrent double create.
func (s *Store) InsertStockRow(ctx context.Context, tx *sqlx.Tx, row *models.StockRow) error {
	query := `
		INSERT INTO stock_rows (warehouse_id, product_id, variant_id, on_hand, reserved)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, updated_at`

	return tx.GetContext(ctx, row, query,
		row.WarehouseID, row.ProductID, row.VariantID, row.OnHand, row.Reserved)
}

// UpdateStockRow persists new counters for a row already locked by
// LockStockRow in the same transaction.
func (s *Store) UpdateStockRow(ctx context.Context, tx *sqlx.Tx, id int64, onHand, reserved int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE stock_rows SET on_hand = $1, reserved = $2, updated_at = NOW() WHERE id = $3",
		onHand, reserved, id)
	return err
}

// StockFilter narrows ListStockRows. Zero values mean "no filter".
type StockFilter struct {
	WarehouseID int64
	ProductID   int64
	Limit       int
	Offset      int
}

// ListStockRows retrieves stock rows for a warehouse with optional product
// filter, paged by limit/offset.
func (s *Store) ListStockRows(ctx context.Context, f StockFilter) ([]models.StockRow, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT * FROM stock_rows
		WHERE ($1 = 0 OR warehouse_id = $1)
		  AND ($2 = 0 OR product_id = $2)
		ORDER BY warehouse_id, product_id, variant_id
		LIMIT $3 OFFSET $4`

	rows := []models.StockRow{}
	err := s.db.SelectContext(ctx, &rows, query, f.WarehouseID, f.ProductID, limit, f.Offset)
	return rows, err
}
