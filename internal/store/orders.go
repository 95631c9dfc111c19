package store

import (
	"context"
	"database/sql"
	"errors"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertOrder creates a purchase order header.
func (s *Store) InsertOrder(ctx context.Context, tx *sqlx.Tx, order *models.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (order_code, supplier_id, warehouse_id, status, total_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return tx.GetContext(ctx, order, query,
		order.OrderCode, order.SupplierID, order.WarehouseID, order.Status, order.TotalAmount)
}

// InsertOrderLine creates one order line.
func (s *Store) InsertOrderLine(ctx context.Context, tx *sqlx.Tx, line *models.PurchaseOrderLine) error {
	query := `
		INSERT INTO purchase_order_lines (order_id, product_id, variant_id, ordered_qty, received_qty, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return tx.GetContext(ctx, &line.ID, query,
		line.OrderID, line.ProductID, line.VariantID, line.OrderedQty, line.ReceivedQty, line.UnitPrice)
}

// GetOrderByID retrieves a non-deleted purchase order, or nil if absent.
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM purchase_orders WHERE id = $1 AND is_deleted = FALSE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockOrder reads a non-deleted order under FOR UPDATE so that concurrent
// receipts and status changes against the same order serialize.
func (s *Store) LockOrder(ctx context.Context, tx *sqlx.Tx, id int64) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := tx.GetContext(ctx, &order,
		"SELECT * FROM purchase_orders WHERE id = $1 AND is_deleted = FALSE FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderLines retrieves the lines of an order.
func (s *Store) GetOrderLines(ctx context.Context, orderID int64) ([]models.PurchaseOrderLine, error) {
	lines := []models.PurchaseOrderLine{}
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM purchase_order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// GetOrderLinesTx retrieves the lines of an order inside a transaction that
// already holds the order row lock.
func (s *Store) GetOrderLinesTx(ctx context.Context, tx *sqlx.Tx, orderID int64) ([]models.PurchaseOrderLine, error) {
	lines := []models.PurchaseOrderLine{}
	err := tx.SelectContext(ctx, &lines,
		"SELECT * FROM purchase_order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// UpdateOrderStatus persists a status change on an order locked in the same
// transaction.
func (s *Store) UpdateOrderStatus(ctx context.Context, tx *sqlx.Tx, orderID int64, status string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderHeader rewrites the editable header fields of a PENDING order.
func (s *Store) UpdateOrderHeader(ctx context.Context, tx *sqlx.Tx, orderID, supplierID, warehouseID, totalAmount int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET supplier_id = $1, warehouse_id = $2, total_amount = $3, updated_at = NOW()
		WHERE id = $4`,
		supplierID, warehouseID, totalAmount, orderID)
	return err
}

// UpdateLineReceived persists the monotonically increased received quantity
// of one line.
func (s *Store) UpdateLineReceived(ctx context.Context, tx *sqlx.Tx, lineID int64, receivedQty int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE purchase_order_lines SET received_qty = $1 WHERE id = $2",
		receivedQty, lineID)
	return err
}

// DeleteOrderLines removes all lines of a PENDING order ahead of a rewrite.
// Lines of orders that ever received stock are never touched (the PENDING
// guard upstream ensures received_qty is still zero everywhere).
func (s *Store) DeleteOrderLines(ctx context.Context, tx *sqlx.Tx, orderID int64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM purchase_order_lines WHERE order_id = $1", orderID)
	return err
}

// SoftDeleteOrder tombstones an order.
func (s *Store) SoftDeleteOrder(ctx context.Context, tx *sqlx.Tx, orderID int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE purchase_orders SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1", orderID)
	return err
}
