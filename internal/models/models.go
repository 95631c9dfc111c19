package models

import (
	"encoding/json"
	"time"
)

// StockRow is the aggregate quantity counter for one (warehouse, product,
// variant) key. VariantID 0 means the product has no variant; the column is
// never NULL so the unique index stays total.
type StockRow struct {
	ID          int64     `db:"id" json:"id"`
	WarehouseID int64     `db:"warehouse_id" json:"warehouse_id"`
	ProductID   int64     `db:"product_id" json:"product_id"`
	VariantID   int64     `db:"variant_id" json:"variant_id"`
	OnHand      int       `db:"on_hand" json:"on_hand"`
	Reserved    int       `db:"reserved" json:"reserved"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Available is the quantity not held by a reservation.
func (r *StockRow) Available() int {
	return r.OnHand - r.Reserved
}

// StockKey identifies one StockRow.
type StockKey struct {
	WarehouseID int64 `json:"warehouse_id"`
	ProductID   int64 `json:"product_id"`
	VariantID   int64 `json:"variant_id"`
}

// SerializedUnit is an individually tracked physical unit. DestWarehouseID is
// set while the unit is TRANSFERRING and applied to WarehouseID on arrival;
// WarehouseID keeps the source warehouse in transit.
type SerializedUnit struct {
	ID              int64     `db:"id" json:"id"`
	SerialNumber    string    `db:"serial_number" json:"serial_number"`
	IMEI1           *string   `db:"imei1" json:"imei1,omitempty"`
	ProductID       int64     `db:"product_id" json:"product_id"`
	WarehouseID     int64     `db:"warehouse_id" json:"warehouse_id"`
	DestWarehouseID *int64    `db:"dest_warehouse_id" json:"dest_warehouse_id,omitempty"`
	Status          string    `db:"status" json:"status"`
	ImportPrice     int64     `db:"import_price" json:"import_price"`
	ImportDate      time.Time `db:"import_date" json:"import_date"`
	Notes           string    `db:"notes" json:"notes,omitempty"`
	IsDeleted       bool      `db:"is_deleted" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PurchaseOrder is the receiving workflow aggregate.
type PurchaseOrder struct {
	ID          int64     `db:"id" json:"id"`
	OrderCode   string    `db:"order_code" json:"order_code"`
	SupplierID  int64     `db:"supplier_id" json:"supplier_id"`
	WarehouseID int64     `db:"warehouse_id" json:"warehouse_id"`
	Status      string    `db:"status" json:"status"`
	TotalAmount int64     `db:"total_amount" json:"total_amount"`
	IsDeleted   bool      `db:"is_deleted" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PurchaseOrderLine tracks ordered vs received quantity for one product.
// ReceivedQty only ever grows and never exceeds OrderedQty.
type PurchaseOrderLine struct {
	ID          int64 `db:"id" json:"id"`
	OrderID     int64 `db:"order_id" json:"order_id"`
	ProductID   int64 `db:"product_id" json:"product_id"`
	VariantID   int64 `db:"variant_id" json:"variant_id"`
	OrderedQty  int   `db:"ordered_qty" json:"ordered_qty"`
	ReceivedQty int   `db:"received_qty" json:"received_qty"`
	UnitPrice   int64 `db:"unit_price" json:"unit_price"`
}

// FullyReceived reports whether the line has nothing left to receive.
func (l *PurchaseOrderLine) FullyReceived() bool {
	return l.ReceivedQty >= l.OrderedQty
}

// InventoryTransaction is one immutable row of the stock audit ledger.
// Quantity is signed: positive into the warehouse, negative out.
type InventoryTransaction struct {
	ID              int64     `db:"id" json:"id"`
	TransactionCode string    `db:"transaction_code" json:"transaction_code"`
	Type            string    `db:"type" json:"type"`
	WarehouseID     int64     `db:"warehouse_id" json:"warehouse_id"`
	ProductID       int64     `db:"product_id" json:"product_id"`
	VariantID       int64     `db:"variant_id" json:"variant_id"`
	UnitID          *int64    `db:"unit_id" json:"unit_id,omitempty"`
	Quantity        int       `db:"quantity" json:"quantity"`
	ReferenceID     *int64    `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// OrderHistory is one immutable audit row per workflow action. Metadata is an
// opaque payload the core never parses.
type OrderHistory struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	Action      string          `db:"action" json:"action"`
	OldStatus   string          `db:"old_status" json:"old_status"`
	NewStatus   string          `db:"new_status" json:"new_status"`
	ActorID     int64           `db:"actor_id" json:"actor_id"`
	Metadata    json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	PerformedAt time.Time       `db:"performed_at" json:"performed_at"`
}

// ProductRef is the read-only product reference consumed from master data.
type ProductRef struct {
	ID           int64  `db:"id" json:"id"`
	SKU          string `db:"sku" json:"sku"`
	Name         string `db:"name" json:"name"`
	IsSerialized bool   `db:"is_serialized" json:"is_serialized"`
}

// WarehouseRef is the read-only warehouse reference consumed from master data.
type WarehouseRef struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	IsActive bool   `db:"is_active" json:"is_active"`
}
