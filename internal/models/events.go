package models

import "time"

// Event types
const (
	EventTypeStockMovement      = "STOCK_MOVEMENT_RECORDED"
	EventTypeOrderReceived      = "ORDER_ITEMS_RECEIVED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeUnitStatusChanged  = "UNIT_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockMovementEvent is published after a committed stock quantity change.
// OnHand and Reserved carry the post-commit values so consumers can refresh
// caches without rereading the row.
type StockMovementEvent struct {
	BaseEvent
	WarehouseID     int64  `json:"warehouse_id"`
	ProductID       int64  `json:"product_id"`
	VariantID       int64  `json:"variant_id"`
	Delta           int    `json:"delta"`
	ReservedDelta   int    `json:"reserved_delta"`
	OnHand          int    `json:"on_hand"`
	Reserved        int    `json:"reserved"`
	TransactionCode string `json:"transaction_code,omitempty"`
}

// OrderReceivedEvent is published after a committed ReceiveItems call.
type OrderReceivedEvent struct {
	BaseEvent
	OrderID   int64              `json:"order_id"`
	OrderCode string             `json:"order_code"`
	Status    string             `json:"status"`
	ActorID   int64              `json:"actor_id"`
	Lines     []ReceivedLineData `json:"lines"`
}

// ReceivedLineData is per-line receipt data carried in events.
type ReceivedLineData struct {
	ProductID   int64 `json:"product_id"`
	VariantID   int64 `json:"variant_id"`
	Quantity    int   `json:"quantity"`
	ReceivedQty int   `json:"received_qty"`
	OrderedQty  int   `json:"ordered_qty"`
}

// OrderStatusChangedEvent is published after an order status transition.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason,omitempty"`
}

// UnitStatusChangedEvent is published after a serialized unit transition.
type UnitStatusChangedEvent struct {
	BaseEvent
	UnitID       int64  `json:"unit_id"`
	SerialNumber string `json:"serial_number"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
	WarehouseID  int64  `json:"warehouse_id"`
}
