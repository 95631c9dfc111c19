package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// OrderService orchestrates the purchase-order lifecycle: create, edit while
// pending, receive partially or fully, deliver, cancel. Every mutating call
// is one all-or-nothing unit of work; the stock mutations, unit creations,
// line updates, ledger records and history record of a receipt become
// visible together or not at all.
type OrderService struct {
	store     *store.Store
	catalog   *Catalog
	ledger    *StockLedger
	units     *UnitService
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new purchase-order service
func NewOrderService(
	store *store.Store,
	catalog *Catalog,
	ledger *StockLedger,
	units *UnitService,
	publisher *broker.EventPublisher,
) *OrderService {
	return &OrderService{
		store:     store,
		catalog:   catalog,
		ledger:    ledger,
		units:     units,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// OrderSnapshot is the full success response of every mutating order call.
type OrderSnapshot struct {
	Order models.PurchaseOrder       `json:"order"`
	Lines []models.PurchaseOrderLine `json:"lines"`
}

// OrderLineRequest is one requested line on order creation or edit.
type OrderLineRequest struct {
	ProductID  int64 `json:"product_id" binding:"required"`
	VariantID  int64 `json:"variant_id"`
	OrderedQty int   `json:"ordered_qty" binding:"required,min=1"`
	UnitPrice  int64 `json:"unit_price" binding:"min=0"`
}

// CreateOrderRequest represents a request to create a purchase order
type CreateOrderRequest struct {
	SupplierID  int64              `json:"supplier_id" binding:"required"`
	WarehouseID int64              `json:"warehouse_id" binding:"required"`
	Lines       []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CreateOrder creates a PENDING order with its lines and a CREATED history
// entry in one unit of work.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest, actorID int64) (*OrderSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := s.catalog.RequireSupplier(ctx, req.SupplierID); err != nil {
		return nil, err
	}
	if err := s.catalog.RequireActiveWarehouse(ctx, req.WarehouseID); err != nil {
		return nil, err
	}
	if err := s.validateLines(ctx, req.Lines); err != nil {
		return nil, err
	}

	var snap *OrderSnapshot
	err := s.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		year := time.Now().Year()
		seq, err := s.store.ReserveCodes(ctx, tx, store.ScopePurchase, year, 1)
		if err != nil {
			return err
		}

		order := &models.PurchaseOrder{
			OrderCode:   store.FormatCode(store.ScopePurchase, year, seq),
			SupplierID:  req.SupplierID,
			WarehouseID: req.WarehouseID,
			Status:      models.OrderStatusPending,
			TotalAmount: orderTotal(req.Lines),
		}
		if err := s.store.InsertOrder(ctx, tx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		lines := make([]models.PurchaseOrderLine, 0, len(req.Lines))
		for _, lr := range req.Lines {
			line := models.PurchaseOrderLine{
				OrderID:    order.ID,
				ProductID:  lr.ProductID,
				VariantID:  lr.VariantID,
				OrderedQty: lr.OrderedQty,
				UnitPrice:  lr.UnitPrice,
			}
			if err := s.store.InsertOrderLine(ctx, tx, &line); err != nil {
				return fmt.Errorf("failed to create order line: %w", err)
			}
			lines = append(lines, line)
		}

		history := &models.OrderHistory{
			OrderID:   order.ID,
			Action:    models.ActionCreated,
			OldStatus: "",
			NewStatus: models.OrderStatusPending,
			ActorID:   actorID,
		}
		if err := s.store.InsertHistory(ctx, tx, history); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}

		snap = &OrderSnapshot{Order: *order, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, mapConcurrency(err, "purchase order")
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Purchase order created",
		zap.Int64("order_id", snap.Order.ID),
		zap.String("order_code", snap.Order.OrderCode),
		zap.Int64("actor_id", actorID))
	return snap, nil
}

// GetOrder retrieves an order with its lines.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderSnapshot, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, &apperr.NotFoundError{Entity: "order", ID: orderID}
	}

	lines, err := s.store.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order lines: %w", err)
	}

	return &OrderSnapshot{Order: *order, Lines: lines}, nil
}

// UpdateOrder rewrites the header and lines of an order still in PENDING.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID int64, req *CreateOrderRequest, actorID int64) (*OrderSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	if err := s.catalog.RequireSupplier(ctx, req.SupplierID); err != nil {
		return nil, err
	}
	if err := s.catalog.RequireActiveWarehouse(ctx, req.WarehouseID); err != nil {
		return nil, err
	}
	if err := s.validateLines(ctx, req.Lines); err != nil {
		return nil, err
	}

	var snap *OrderSnapshot
	err := s.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order == nil {
			return &apperr.NotFoundError{Entity: "order", ID: orderID}
		}
		if !models.OrderEditable(order.Status) {
			return &apperr.InvalidStateError{
				Entity: "order", ID: orderID, Status: order.Status, Op: "edit",
			}
		}

		if err := s.store.DeleteOrderLines(ctx, tx, orderID); err != nil {
			return fmt.Errorf("failed to replace order lines: %w", err)
		}

		lines := make([]models.PurchaseOrderLine, 0, len(req.Lines))
		for _, lr := range req.Lines {
			line := models.PurchaseOrderLine{
				OrderID:    orderID,
				ProductID:  lr.ProductID,
				VariantID:  lr.VariantID,
				OrderedQty: lr.OrderedQty,
				UnitPrice:  lr.UnitPrice,
			}
			if err := s.store.InsertOrderLine(ctx, tx, &line); err != nil {
				return fmt.Errorf("failed to create order line: %w", err)
			}
			lines = append(lines, line)
		}

		total := orderTotal(req.Lines)
		if err := s.store.UpdateOrderHeader(ctx, tx, orderID, req.SupplierID, req.WarehouseID, total); err != nil {
			return fmt.Errorf("failed to update order header: %w", err)
		}

		history := &models.OrderHistory{
			OrderID:   orderID,
			Action:    models.ActionUpdated,
			OldStatus: order.Status,
			NewStatus: order.Status,
			ActorID:   actorID,
		}
		if err := s.store.InsertHistory(ctx, tx, history); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}

		order.SupplierID = req.SupplierID
		order.WarehouseID = req.WarehouseID
		order.TotalAmount = total
		snap = &OrderSnapshot{Order: *order, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, mapConcurrency(err, "purchase order")
	}
	return snap, nil
}

// DeleteOrder tombstones an order still in PENDING or CANCELLED.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID, actorID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	err := s.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order == nil {
			return &apperr.NotFoundError{Entity: "order", ID: orderID}
		}
		if !models.OrderDeletable(order.Status) {
			return &apperr.InvalidStateError{
				Entity: "order", ID: orderID, Status: order.Status, Op: "delete",
			}
		}

		if err := s.store.SoftDeleteOrder(ctx, tx, orderID); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}

		history := &models.OrderHistory{
			OrderID:   orderID,
			Action:    models.ActionDeleted,
			OldStatus: order.Status,
			NewStatus: order.Status,
			ActorID:   actorID,
		}
		return s.store.InsertHistory(ctx, tx, history)
	})
	return mapConcurrency(err, "purchase order")
}

// ReceiveLineRequest is one line of a receiving request. Serialized products
// require exactly Quantity serial numbers; aggregate products none.
type ReceiveLineRequest struct {
	ProductID int64    `json:"product_id" binding:"required"`
	VariantID int64    `json:"variant_id"`
	Quantity  int      `json:"quantity" binding:"required,min=1"`
	Serials   []string `json:"serials,omitempty"`
}

// ReceiveItemsRequest represents a receiving request against an order
type ReceiveItemsRequest struct {
	Lines []ReceiveLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReceiveItems converts ordered quantity into on-hand inventory. The whole
// call is one unit of work: any per-line failure (unknown line, over-receipt,
// duplicate serial) rolls back every effect already applied. Receiving while
// PENDING implicitly confirms the order; full receipt delivers it.
func (s *OrderService) ReceiveItems(ctx context.Context, orderID int64, req *ReceiveItemsRequest, actorID int64) (*OrderSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ReceiveItems")
	defer span.End()

	if len(req.Lines) == 0 {
		return nil, &apperr.ValidationError{Field: "lines", Msg: "at least one line is required"}
	}

	start := time.Now()
	defer func() {
		util.ReceiveLatency.Observe(time.Since(start).Seconds())
	}()

	var snap *OrderSnapshot
	var oldStatus string
	var eventLines []models.ReceivedLineData
	var movements []models.StockMovementEvent

	err := s.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order == nil {
			return &apperr.NotFoundError{Entity: "order", ID: orderID}
		}
		oldStatus = order.Status
		if !models.OrderReceivable(order.Status) {
			return &apperr.InvalidStateError{
				Entity: "order", ID: orderID, Status: order.Status, Op: "receive",
			}
		}

		lines, err := s.store.GetOrderLinesTx(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to get order lines: %w", err)
		}
		byKey := make(map[models.StockKey]*models.PurchaseOrderLine, len(lines))
		for i := range lines {
			k := models.StockKey{ProductID: lines[i].ProductID, VariantID: lines[i].VariantID}
			byKey[k] = &lines[i]
		}

		eventLines = eventLines[:0]
		movements = movements[:0]
		records := make([]*models.InventoryTransaction, 0, len(req.Lines))

		for _, in := range req.Lines {
			if in.Quantity <= 0 {
				return &apperr.InvalidQuantityError{Qty: in.Quantity}
			}
			line := byKey[models.StockKey{ProductID: in.ProductID, VariantID: in.VariantID}]
			if line == nil {
				return &apperr.UnknownLineError{
					OrderID: orderID, ProductID: in.ProductID, VariantID: in.VariantID,
				}
			}
			if line.ReceivedQty+in.Quantity > line.OrderedQty {
				return &apperr.OverReceiptError{
					OrderID:     orderID,
					LineID:      line.ID,
					OrderedQty:  line.OrderedQty,
					ReceivedQty: line.ReceivedQty,
					Requested:   in.Quantity,
				}
			}

			product, err := s.catalog.Product(ctx, in.ProductID)
			if err != nil {
				return err
			}

			if product.IsSerialized {
				if len(in.Serials) != in.Quantity {
					return &apperr.ValidationError{Field: "serials",
						Msg: fmt.Sprintf("product %d needs exactly %d serial numbers, got %d",
							in.ProductID, in.Quantity, len(in.Serials))}
				}
				for _, serial := range in.Serials {
					_, err := s.units.CreateUnitTx(ctx, tx, CreateUnitInput{
						SerialNumber: serial,
						ProductID:    in.ProductID,
						WarehouseID:  order.WarehouseID,
						ImportPrice:  line.UnitPrice,
					})
					if err != nil {
						return err
					}
				}
			} else {
				if len(in.Serials) > 0 {
					return &apperr.ValidationError{Field: "serials",
						Msg: fmt.Sprintf("product %d is not serialized", in.ProductID)}
				}
				key := models.StockKey{
					WarehouseID: order.WarehouseID,
					ProductID:   in.ProductID,
					VariantID:   in.VariantID,
				}
				row, err := s.ledger.IncreaseTx(ctx, tx, key, in.Quantity)
				if err != nil {
					return err
				}
				movements = append(movements, models.StockMovementEvent{
					WarehouseID: row.WarehouseID,
					ProductID:   row.ProductID,
					VariantID:   row.VariantID,
					Delta:       in.Quantity,
					OnHand:      row.OnHand,
					Reserved:    row.Reserved,
				})
			}

			line.ReceivedQty += in.Quantity
			if err := s.store.UpdateLineReceived(ctx, tx, line.ID, line.ReceivedQty); err != nil {
				return fmt.Errorf("failed to update received quantity: %w", err)
			}

			records = append(records, &models.InventoryTransaction{
				Type:        models.TransactionTypeImport,
				WarehouseID: order.WarehouseID,
				ProductID:   in.ProductID,
				VariantID:   in.VariantID,
				Quantity:    in.Quantity,
				ReferenceID: &orderID,
			})

			eventLines = append(eventLines, models.ReceivedLineData{
				ProductID:   in.ProductID,
				VariantID:   in.VariantID,
				Quantity:    in.Quantity,
				ReceivedQty: line.ReceivedQty,
				OrderedQty:  line.OrderedQty,
			})
		}

		// Codes are allocated after the per-line work so every writer takes
		// stock-row locks before the counter row, same order as transfers.
		year := time.Now().Year()
		firstSeq, err := s.store.ReserveCodes(ctx, tx, store.ScopeTransaction, year, len(records))
		if err != nil {
			return err
		}
		for i, rec := range records {
			rec.TransactionCode = store.FormatCode(store.ScopeTransaction, year, firstSeq+int64(i))
			if err := s.insertTransactionRetry(ctx, tx, rec, year); err != nil {
				return err
			}
		}

		newStatus := orderStatusAfterReceipt(lines)
		if err := s.store.UpdateOrderStatus(ctx, tx, orderID, newStatus); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		action := models.ActionPartialReceived
		if newStatus == models.OrderStatusDelivered {
			action = models.ActionReceived
		}
		metadata, _ := json.Marshal(map[string]interface{}{"lines": eventLines})

		history := &models.OrderHistory{
			OrderID:   orderID,
			Action:    action,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			ActorID:   actorID,
			Metadata:  metadata,
		}
		if err := s.store.InsertHistory(ctx, tx, history); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}

		order.Status = newStatus
		snap = &OrderSnapshot{Order: *order, Lines: lines}
		return nil
	})
	if err != nil {
		util.ReceiptsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, mapConcurrency(err, "purchase order")
	}

	util.ReceiptsTotal.Inc()
	util.TransactionCodesIssuedTotal.Add(float64(len(req.Lines)))
	if snap.Order.Status == models.OrderStatusDelivered {
		util.OrdersDeliveredTotal.Inc()
	}
	s.logger.Info("Order items received",
		zap.Int64("order_id", orderID),
		zap.String("status", snap.Order.Status),
		zap.Int("lines", len(req.Lines)),
		zap.Int64("actor_id", actorID))

	s.publishReceipt(ctx, snap, eventLines, movements, actorID)
	return snap, nil
}

// UpdateStatus moves an order along a legal workflow edge and records the
// transition in the history log.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus, reason string, actorID int64) (*OrderSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	var snap *OrderSnapshot
	var oldStatus string

	err := s.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if order == nil {
			return &apperr.NotFoundError{Entity: "order", ID: orderID}
		}

		oldStatus = order.Status
		if !models.CanTransitionOrder(oldStatus, newStatus) {
			return &apperr.InvalidTransitionError{
				Entity: "order", ID: orderID, From: oldStatus, To: newStatus,
			}
		}

		if err := s.store.UpdateOrderStatus(ctx, tx, orderID, newStatus); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		var metadata json.RawMessage
		if reason != "" {
			metadata, _ = json.Marshal(map[string]string{"reason": reason})
		}
		history := &models.OrderHistory{
			OrderID:   orderID,
			Action:    models.ActionStatusChanged,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			ActorID:   actorID,
			Metadata:  metadata,
		}
		if err := s.store.InsertHistory(ctx, tx, history); err != nil {
			return fmt.Errorf("failed to record order history: %w", err)
		}

		lines, err := s.store.GetOrderLinesTx(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("failed to get order lines: %w", err)
		}

		order.Status = newStatus
		snap = &OrderSnapshot{Order: *order, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, mapConcurrency(err, "purchase order")
	}

	if newStatus == models.OrderStatusCancelled {
		util.OrdersCancelledTotal.Inc()
	}
	s.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("old_status", oldStatus),
		zap.String("new_status", newStatus),
		zap.Int64("actor_id", actorID))

	if s.publisher != nil {
		event := &models.OrderStatusChangedEvent{
			OrderID:   orderID,
			OrderCode: snap.Order.OrderCode,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Reason:    reason,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}
	return snap, nil
}

// ListTransactions returns a page of audit ledger records, newest first.
func (s *OrderService) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]models.InventoryTransaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// GetHistory retrieves the order's history entries, newest first.
func (s *OrderService) GetHistory(ctx context.Context, orderID int64) ([]models.OrderHistory, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, &apperr.NotFoundError{Entity: "order", ID: orderID}
	}
	return s.store.GetOrderHistory(ctx, orderID)
}

// insertTransactionRetry inserts a ledger record, regenerating the code once
// on a collision with the unique index backstop. The insert runs under a
// savepoint: a unique violation aborts everything after it in a Postgres
// transaction, so the savepoint is rolled back to keep the enclosing unit of
// work live for the retry.
func (s *OrderService) insertTransactionRetry(ctx context.Context, tx *sqlx.Tx, rec *models.InventoryTransaction, year int) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT txn_insert"); err != nil {
		return fmt.Errorf("failed to set savepoint: %w", err)
	}

	err := s.store.InsertTransaction(ctx, tx, rec)
	if err == nil {
		_, err = tx.ExecContext(ctx, "RELEASE SAVEPOINT txn_insert")
		return err
	}
	if !store.IsUniqueViolation(err, "inventory_transactions") {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT txn_insert"); err != nil {
		return fmt.Errorf("failed to roll back savepoint: %w", err)
	}

	seq, seqErr := s.store.ReserveCodes(ctx, tx, store.ScopeTransaction, year, 1)
	if seqErr != nil {
		return seqErr
	}
	rec.TransactionCode = store.FormatCode(store.ScopeTransaction, year, seq)
	if err := s.store.InsertTransaction(ctx, tx, rec); err != nil {
		return &apperr.CodeConflictError{Code: rec.TransactionCode}
	}
	return nil
}

func (s *OrderService) publishReceipt(ctx context.Context, snap *OrderSnapshot, eventLines []models.ReceivedLineData, movements []models.StockMovementEvent, actorID int64) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderReceivedEvent{
		OrderID:   snap.Order.ID,
		OrderCode: snap.Order.OrderCode,
		Status:    snap.Order.Status,
		ActorID:   actorID,
		Lines:     eventLines,
	}
	if err := s.publisher.PublishOrderReceived(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderReceived event", zap.Error(err))
	}

	for i := range movements {
		if err := s.publisher.PublishStockMovement(ctx, &movements[i]); err != nil {
			s.logger.Error("Failed to publish StockMovement event", zap.Error(err))
		}
	}
}

// orderStatusAfterReceipt recomputes the order status from its lines:
// DELIVERED when every line is fully received, else CONFIRMED (a receipt
// against a PENDING order implicitly confirms it).
func orderStatusAfterReceipt(lines []models.PurchaseOrderLine) string {
	for i := range lines {
		if !lines[i].FullyReceived() {
			return models.OrderStatusConfirmed
		}
	}
	return models.OrderStatusDelivered
}

func orderTotal(lines []OrderLineRequest) int64 {
	var total int64
	for _, l := range lines {
		total += l.UnitPrice * int64(l.OrderedQty)
	}
	return total
}

// validateLines checks requested order lines against master data and rejects
// a duplicate (product, variant) pair, which would make receipt resolution
// ambiguous.
func (s *OrderService) validateLines(ctx context.Context, lines []OrderLineRequest) error {
	seen := make(map[models.StockKey]bool, len(lines))
	for _, l := range lines {
		if l.OrderedQty <= 0 {
			return &apperr.InvalidQuantityError{Qty: l.OrderedQty}
		}
		if _, err := s.catalog.Product(ctx, l.ProductID); err != nil {
			return err
		}
		k := models.StockKey{ProductID: l.ProductID, VariantID: l.VariantID}
		if seen[k] {
			return &apperr.ValidationError{Field: "lines",
				Msg: fmt.Sprintf("duplicate line for product %d variant %d", l.ProductID, l.VariantID)}
		}
		seen[k] = true
	}
	return nil
}
