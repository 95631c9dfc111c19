package service

import (
	"context"
	"fmt"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// StockLedger owns the aggregate quantity counters. Every mutation is an
// atomic read-modify-write under a row-level lock: two concurrent mutations
// against the same (warehouse, product, variant) key never interleave. The
// redis snapshot is a read-side cache; the database stays the source of truth.
type StockLedger struct {
	store     *store.Store
	redis     *redisclient.Client
	ttl       time.Duration
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewStockLedger creates a new stock ledger service
func NewStockLedger(store *store.Store, redis *redisclient.Client, ttl time.Duration, publisher *broker.EventPublisher) *StockLedger {
	return &StockLedger{
		store:     store,
		redis:     redis,
		ttl:       ttl,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// GetStock returns the current counters for a key. A key that has never seen
// a movement reads as onHand=0, reserved=0. Counters are served from the
// snapshot cache when present; the database serves misses and reseeds it.
func (l *StockLedger) GetStock(ctx context.Context, key models.StockKey) (*models.StockRow, error) {
	if l.redis != nil {
		onHand, reserved, found, err := l.redis.GetStockSnapshot(ctx, key.WarehouseID, key.ProductID, key.VariantID)
		if err != nil {
			l.logger.Warn("Stock snapshot read failed, falling back to DB",
				zap.Int64("warehouse_id", key.WarehouseID),
				zap.Int64("product_id", key.ProductID),
				zap.Error(err))
		} else if found {
			return &models.StockRow{
				WarehouseID: key.WarehouseID,
				ProductID:   key.ProductID,
				VariantID:   key.VariantID,
				OnHand:      onHand,
				Reserved:    reserved,
			}, nil
		}
	}

	row, err := l.store.GetStockRow(ctx, key.WarehouseID, key.ProductID, key.VariantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock row: %w", err)
	}
	if row == nil {
		return &models.StockRow{
			WarehouseID: key.WarehouseID,
			ProductID:   key.ProductID,
			VariantID:   key.VariantID,
		}, nil
	}

	if l.redis != nil {
		if err := l.redis.InitStockSnapshot(ctx, key.WarehouseID, key.ProductID, key.VariantID,
			row.OnHand, row.Reserved, l.ttl); err != nil {
			l.logger.Warn("Stock snapshot seed failed", zap.Error(err))
		}
	}
	return row, nil
}

// ListStock returns a page of stock rows.
func (l *StockLedger) ListStock(ctx context.Context, f store.StockFilter) ([]models.StockRow, error) {
	return l.store.ListStockRows(ctx, f)
}

// Increase adds qty to on-hand, creating the row lazily on first movement.
func (l *StockLedger) Increase(ctx context.Context, key models.StockKey, qty int) (*models.StockRow, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Increase")
	defer span.End()

	var row *models.StockRow
	err := l.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		row, err = l.IncreaseTx(ctx, tx, key, qty)
		return err
	})
	if err != nil {
		util.StockMovementsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, mapConcurrency(err, "stock row")
	}

	util.StockMovementsTotal.WithLabelValues("increase").Inc()
	l.publishMovement(ctx, row, qty, 0, "")
	return row, nil
}

// Decrease removes qty from on-hand; it fails when available < qty so that
// reserved stock can never be shipped out from under a reservation.
func (l *StockLedger) Decrease(ctx context.Context, key models.StockKey, qty int) (*models.StockRow, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Decrease")
	defer span.End()

	var row *models.StockRow
	err := l.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		row, err = l.DecreaseTx(ctx, tx, key, qty)
		return err
	})
	if err != nil {
		util.StockMovementsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, mapConcurrency(err, "stock row")
	}

	util.StockMovementsTotal.WithLabelValues("decrease").Inc()
	l.publishMovement(ctx, row, -qty, 0, "")
	return row, nil
}

// Reserve places a soft hold that reduces available without touching on-hand.
func (l *StockLedger) Reserve(ctx context.Context, key models.StockKey, qty int) (*models.StockRow, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Reserve")
	defer span.End()

	var row *models.StockRow
	err := l.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		row, err = l.reserveTx(ctx, tx, key, qty)
		return err
	})
	if err != nil {
		util.StockMovementsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, mapConcurrency(err, "stock row")
	}

	util.StockMovementsTotal.WithLabelValues("reserve").Inc()
	l.publishMovement(ctx, row, 0, qty, "")
	return row, nil
}

// Unreserve releases a soft hold.
func (l *StockLedger) Unreserve(ctx context.Context, key models.StockKey, qty int) (*models.StockRow, error) {
	ctx, span := util.StartSpan(ctx, "StockLedger.Unreserve")
	defer span.End()

	var row *models.StockRow
	err := l.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		row, err = l.unreserveTx(ctx, tx, key, qty)
		return err
	})
	if err != nil {
		util.StockMovementsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, mapConcurrency(err, "stock row")
	}

	util.StockMovementsTotal.WithLabelValues("unreserve").Inc()
	l.publishMovement(ctx, row, 0, -qty, "")
	return row, nil
}

// Transfer moves qty between warehouses for one product: decrease at the
// source and increase at the destination in a single unit of work, with two
// TRANSFER ledger records sharing one reference code.
func (l *StockLedger) Transfer(ctx context.Context, srcWarehouseID, dstWarehouseID, productID, variantID int64, qty int, actorID int64) error {
	ctx, span := util.StartSpan(ctx, "StockLedger.Transfer")
	defer span.End()

	if srcWarehouseID == dstWarehouseID {
		return &apperr.ValidationError{Field: "dest_warehouse_id",
			Msg: "source and destination warehouses must differ"}
	}

	src := models.StockKey{WarehouseID: srcWarehouseID, ProductID: productID, VariantID: variantID}
	dst := models.StockKey{WarehouseID: dstWarehouseID, ProductID: productID, VariantID: variantID}

	var srcRow, dstRow *models.StockRow
	var outCode, inCode string

	err := l.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if srcRow, err = l.DecreaseTx(ctx, tx, src, qty); err != nil {
			return err
		}
		if dstRow, err = l.IncreaseTx(ctx, tx, dst, qty); err != nil {
			return err
		}

		year := time.Now().Year()
		first, err := l.store.ReserveCodes(ctx, tx, store.ScopeTransaction, year, 2)
		if err != nil {
			return err
		}
		outCode = store.FormatCode(store.ScopeTransaction, year, first)
		inCode = store.FormatCode(store.ScopeTransaction, year, first+1)

		out := &models.InventoryTransaction{
			TransactionCode: outCode,
			Type:            models.TransactionTypeTransfer,
			WarehouseID:     srcWarehouseID,
			ProductID:       productID,
			VariantID:       variantID,
			Quantity:        -qty,
		}
		in := &models.InventoryTransaction{
			TransactionCode: inCode,
			Type:            models.TransactionTypeTransfer,
			WarehouseID:     dstWarehouseID,
			ProductID:       productID,
			VariantID:       variantID,
			Quantity:        qty,
		}
		if err := l.store.InsertTransaction(ctx, tx, out); err != nil {
			return err
		}
		in.ReferenceID = &out.ID
		if err := l.store.InsertTransaction(ctx, tx, in); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		util.StockMovementsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return mapConcurrency(err, "stock row")
	}

	util.StockMovementsTotal.WithLabelValues("transfer").Add(2)
	util.TransactionCodesIssuedTotal.Add(2)
	l.logger.Info("Stock transferred",
		zap.Int64("src_warehouse_id", srcWarehouseID),
		zap.Int64("dst_warehouse_id", dstWarehouseID),
		zap.Int64("product_id", productID),
		zap.Int("qty", qty),
		zap.Int64("actor_id", actorID))

	l.publishMovement(ctx, srcRow, -qty, 0, outCode)
	l.publishMovement(ctx, dstRow, qty, 0, inCode)
	return nil
}

// IncreaseTx is the transaction-scoped increase used by the receiving
// workflow so per-line effects share the caller's unit of work.
func (l *StockLedger) IncreaseTx(ctx context.Context, tx *sqlx.Tx, key models.StockKey, qty int) (*models.StockRow, error) {
	if qty <= 0 {
		return nil, &apperr.InvalidQuantityError{Qty: qty}
	}

	row, err := l.store.LockStockRow(ctx, tx, key.WarehouseID, key.ProductID, key.VariantID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock row: %w", err)
	}

	if row == nil {
		row = &models.StockRow{
			WarehouseID: key.WarehouseID,
			ProductID:   key.ProductID,
			VariantID:   key.VariantID,
			OnHand:      qty,
		}
		if err := l.store.InsertStockRow(ctx, tx, row); err != nil {
			if store.IsUniqueViolation(err, "stock_rows") {
				// A concurrent first movement created the row between our
				// lock attempt and insert; the caller retries the whole call.
				return nil, &apperr.ConcurrencyConflictError{Resource: "stock row"}
			}
			return nil, fmt.Errorf("failed to create stock row: %w", err)
		}
		return row, nil
	}

	row.OnHand += qty
	if err := l.store.UpdateStockRow(ctx, tx, row.ID, row.OnHand, row.Reserved); err != nil {
		return nil, fmt.Errorf("failed to update stock row: %w", err)
	}
	return row, nil
}

// DecreaseTx is the transaction-scoped decrease used by transfers.
func (l *StockLedger) DecreaseTx(ctx context.Context, tx *sqlx.Tx, key models.StockKey, qty int) (*models.StockRow, error) {
	if qty <= 0 {
		return nil, &apperr.InvalidQuantityError{Qty: qty}
	}

	row, err := l.store.LockStockRow(ctx, tx, key.WarehouseID, key.ProductID, key.VariantID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock row: %w", err)
	}

	available := 0
	if row != nil {
		available = row.Available()
	}
	if available < qty {
		return nil, &apperr.InsufficientStockError{
			WarehouseID: key.WarehouseID,
			ProductID:   key.ProductID,
			VariantID:   key.VariantID,
			Available:   available,
			Requested:   qty,
		}
	}

	row.OnHand -= qty
	if err := l.store.UpdateStockRow(ctx, tx, row.ID, row.OnHand, row.Reserved); err != nil {
		return nil, fmt.Errorf("failed to update stock row: %w", err)
	}
	return row, nil
}

func (l *StockLedger) reserveTx(ctx context.Context, tx *sqlx.Tx, key models.StockKey, qty int) (*models.StockRow, error) {
	if qty <= 0 {
		return nil, &apperr.InvalidQuantityError{Qty: qty}
	}

	row, err := l.store.LockStockRow(ctx, tx, key.WarehouseID, key.ProductID, key.VariantID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock row: %w", err)
	}

	available := 0
	if row != nil {
		available = row.Available()
	}
	if available < qty {
		return nil, &apperr.InsufficientStockError{
			WarehouseID: key.WarehouseID,
			ProductID:   key.ProductID,
			VariantID:   key.VariantID,
			Available:   available,
			Requested:   qty,
		}
	}

	row.Reserved += qty
	if err := l.store.UpdateStockRow(ctx, tx, row.ID, row.OnHand, row.Reserved); err != nil {
		return nil, fmt.Errorf("failed to update stock row: %w", err)
	}
	return row, nil
}

func (l *StockLedger) unreserveTx(ctx context.Context, tx *sqlx.Tx, key models.StockKey, qty int) (*models.StockRow, error) {
	if qty <= 0 {
		return nil, &apperr.InvalidQuantityError{Qty: qty}
	}

	row, err := l.store.LockStockRow(ctx, tx, key.WarehouseID, key.ProductID, key.VariantID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stock row: %w", err)
	}

	reserved := 0
	if row != nil {
		reserved = row.Reserved
	}
	if reserved < qty {
		return nil, &apperr.OverReleaseError{
			WarehouseID: key.WarehouseID,
			ProductID:   key.ProductID,
			VariantID:   key.VariantID,
			Reserved:    reserved,
			Requested:   qty,
		}
	}

	row.Reserved -= qty
	if err := l.store.UpdateStockRow(ctx, tx, row.ID, row.OnHand, row.Reserved); err != nil {
		return nil, fmt.Errorf("failed to update stock row: %w", err)
	}
	return row, nil
}

// publishMovement runs after commit: it applies the deltas to an existing
// snapshot (increments commute, so concurrent writers stay consistent) and
// publishes the movement event. Both are best-effort.
func (l *StockLedger) publishMovement(ctx context.Context, row *models.StockRow, delta, reservedDelta int, code string) {
	if row == nil {
		return
	}

	if l.redis != nil {
		if err := l.redis.ApplyMovement(ctx, row.WarehouseID, row.ProductID, row.VariantID,
			delta, reservedDelta, l.ttl); err != nil {
			l.logger.Warn("Stock snapshot update failed", zap.Error(err))
		}
	}

	if l.publisher == nil {
		return
	}
	event := &models.StockMovementEvent{
		WarehouseID:     row.WarehouseID,
		ProductID:       row.ProductID,
		VariantID:       row.VariantID,
		Delta:           delta,
		ReservedDelta:   reservedDelta,
		OnHand:          row.OnHand,
		Reserved:        row.Reserved,
		TransactionCode: code,
	}
	if err := l.publisher.PublishStockMovement(ctx, event); err != nil {
		l.logger.Error("Failed to publish StockMovement event", zap.Error(err))
	}
}

// mapConcurrency converts database serialization failures into the retryable
// conflict error; everything else passes through unchanged.
func mapConcurrency(err error, resource string) error {
	if store.IsSerializationFailure(err) {
		return &apperr.ConcurrencyConflictError{Resource: resource}
	}
	return err
}

func failureReason(err error) string {
	switch {
	case apperr.IsQuantityViolation(err):
		return "quantity_violation"
	case apperr.IsStateConflict(err):
		return "state_conflict"
	case apperr.IsUniqueness(err):
		return "uniqueness"
	case apperr.IsNotFound(err):
		return "not_found"
	case apperr.IsValidation(err):
		return "validation"
	case store.IsSerializationFailure(err):
		return "concurrency"
	default:
		return "db_error"
	}
}
