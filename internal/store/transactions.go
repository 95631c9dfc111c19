package store

import (
	"context"
	"fmt"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// Code sequence scopes.
const (
	ScopeTransaction = "INV"
	ScopePurchase    = "PO"
)

// ReserveCodes atomically advances the per-(scope, year) counter by count and
// returns the first reserved sequence number. N records cost one allocation.
// The single INSERT .. ON CONFLICT DO UPDATE statement row-locks the counter,
// so two concurrent callers never receive overlapping ranges.
func (s *Store) ReserveCodes(ctx context.Context, tx *sqlx.Tx, scope string, year, count int) (int64, error) {
	if count <= 0 {
		return 0, fmt.Errorf("code reservation count must be positive, got %d", count)
	}

	var last int64
	err := tx.GetContext(ctx, &last, `
		INSERT INTO code_sequences (scope, year, last_seq)
		VALUES ($1, $2, $3)
		ON CONFLICT (scope, year)
		DO UPDATE SET last_seq = code_sequences.last_seq + $3
		RETURNING last_seq`,
		scope, year, count)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve %s codes: %w", scope, err)
	}

	return last - int64(count) + 1, nil
}

// FormatCode renders a sequence number as a human-readable code, e.g.
// INV-2026-00042 or PO-2026-00007. Sequence numbers are monotonic per
// calendar year and never reused.
func FormatCode(scope string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", scope, year, seq)
}

// InsertTransaction appends one immutable audit ledger row.
func (s *Store) InsertTransaction(ctx context.Context, tx *sqlx.Tx, rec *models.InventoryTransaction) error {
	query := `
		INSERT INTO inventory_transactions
			(transaction_code, type, warehouse_id, product_id, variant_id, unit_id, quantity, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return tx.GetContext(ctx, rec, query,
		rec.TransactionCode, rec.Type, rec.WarehouseID, rec.ProductID,
		rec.VariantID, rec.UnitID, rec.Quantity, rec.ReferenceID)
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	WarehouseID int64
	ProductID   int64
	Type        string
	ReferenceID int64
	Limit       int
	Offset      int
}

// ListTransactions retrieves ledger rows newest first.
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.InventoryTransaction, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT * FROM inventory_transactions
		WHERE ($1 = 0 OR warehouse_id = $1)
		  AND ($2 = 0 OR product_id = $2)
		  AND ($3 = '' OR type = $3)
		  AND ($4 = 0 OR reference_id = $4)
		ORDER BY id DESC
		LIMIT $5 OFFSET $6`

	recs := []models.InventoryTransaction{}
	err := s.db.SelectContext(ctx, &recs, query,
		f.WarehouseID, f.ProductID, f.Type, f.ReferenceID, limit, f.Offset)
	return recs, err
}
