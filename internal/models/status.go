package models

// Purchase order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

var validOrderNext = map[string]map[string]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusDelivered: true, OrderStatusCancelled: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// CanTransitionOrder reports whether a purchase order may move from one
// status to another.
func CanTransitionOrder(from, to string) bool {
	return validOrderNext[from][to]
}

// OrderReceivable reports whether the order status permits receiving items.
func OrderReceivable(status string) bool {
	return status == OrderStatusPending || status == OrderStatusConfirmed
}

// OrderEditable reports whether the order header and lines may still change.
func OrderEditable(status string) bool {
	return status == OrderStatusPending
}

// OrderDeletable reports whether the order may be tombstoned.
func OrderDeletable(status string) bool {
	return status == OrderStatusPending || status == OrderStatusCancelled
}

// Serialized unit statuses
const (
	UnitStatusInStock      = "IN_STOCK"
	UnitStatusSold         = "SOLD"
	UnitStatusWarranty     = "WARRANTY"
	UnitStatusRepair       = "REPAIR"
	UnitStatusBroken       = "BROKEN"
	UnitStatusTransferring = "TRANSFERRING"
	UnitStatusDemo         = "DEMO"
	UnitStatusScrapped     = "SCRAPPED"
	UnitStatusLost         = "LOST"
)

var validUnitNext = map[string]map[string]bool{
	UnitStatusInStock: {
		UnitStatusSold:         true,
		UnitStatusWarranty:     true,
		UnitStatusRepair:       true,
		UnitStatusBroken:       true,
		UnitStatusTransferring: true,
		UnitStatusDemo:         true,
		UnitStatusScrapped:     true,
		UnitStatusLost:         true,
	},
	UnitStatusTransferring: {UnitStatusInStock: true, UnitStatusLost: true},
	UnitStatusWarranty:     {UnitStatusInStock: true, UnitStatusScrapped: true},
	UnitStatusRepair:       {UnitStatusInStock: true, UnitStatusScrapped: true},
	UnitStatusBroken:       {},
	UnitStatusDemo:         {},
	UnitStatusSold:         {},
	UnitStatusScrapped:     {},
	UnitStatusLost:         {},
}

// CanTransitionUnit reports whether a serialized unit may move from one
// status to another through the normal lifecycle. Terminal states (SOLD,
// SCRAPPED, LOST) can only be left via an administrative override.
func CanTransitionUnit(from, to string) bool {
	return validUnitNext[from][to]
}

// IsUnitStatus reports whether s is a known serialized unit status.
func IsUnitStatus(s string) bool {
	_, ok := validUnitNext[s]
	return ok
}

// History actions
const (
	ActionCreated         = "CREATED"
	ActionUpdated         = "UPDATED"
	ActionReceived        = "RECEIVED"
	ActionPartialReceived = "PARTIAL_RECEIVED"
	ActionStatusChanged   = "STATUS_CHANGED"
	ActionDeleted         = "DELETED"
)

// Inventory transaction types
const (
	TransactionTypeImport     = "IMPORT"
	TransactionTypeExport     = "EXPORT"
	TransactionTypeTransfer   = "TRANSFER"
	TransactionTypeAdjustment = "ADJUSTMENT"
)
