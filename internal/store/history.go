package store

import (
	"context"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertHistory appends one immutable purchase-order history row.
func (s *Store) InsertHistory(ctx context.Context, tx *sqlx.Tx, h *models.OrderHistory) error {
	query := `
		INSERT INTO purchase_order_history (order_id, action, old_status, new_status, actor_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, performed_at`

	return tx.GetContext(ctx, h, query,
		h.OrderID, h.Action, h.OldStatus, h.NewStatus, h.ActorID, h.Metadata)
}

// GetOrderHistory retrieves history entries for an order, newest first.
func (s *Store) GetOrderHistory(ctx context.Context, orderID int64) ([]models.OrderHistory, error) {
	entries := []models.OrderHistory{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT * FROM purchase_order_history
		WHERE order_id = $1
		ORDER BY performed_at DESC, id DESC`, orderID)
	return entries, err
}
