// Package apperr defines the typed failures returned by the inventory core.
// Every mutating call either succeeds fully or returns one of these with
// enough context (ids, offending quantities) for the caller to act on.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input that no retry will fix.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return e.Msg
}

// NotFoundError reports a missing entity reference.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

// UnknownLineError reports a receipt line that is not part of the order.
type UnknownLineError struct {
	OrderID   int64
	ProductID int64
	VariantID int64
}

func (e *UnknownLineError) Error() string {
	return fmt.Sprintf("order %d has no line for product %d variant %d",
		e.OrderID, e.ProductID, e.VariantID)
}

// InvalidStateError reports an operation attempted against an entity whose
// current status does not permit it.
type InvalidStateError struct {
	Entity string
	ID     int64
	Status string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d in status %s does not permit %s",
		e.Entity, e.ID, e.Status, e.Op)
}

// InvalidTransitionError reports a status edge outside the permitted graph.
type InvalidTransitionError struct {
	Entity string
	ID     int64
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %d cannot transition %s -> %s", e.Entity, e.ID, e.From, e.To)
}

// InvalidQuantityError reports a non-positive quantity.
type InvalidQuantityError struct {
	Qty int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be positive, got %d", e.Qty)
}

// InsufficientStockError reports a decrease or reservation exceeding the
// available quantity.
type InsufficientStockError struct {
	WarehouseID int64
	ProductID   int64
	VariantID   int64
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for warehouse %d product %d variant %d: available=%d, requested=%d",
		e.WarehouseID, e.ProductID, e.VariantID, e.Available, e.Requested)
}

// OverReleaseError reports an unreserve exceeding the reserved quantity.
type OverReleaseError struct {
	WarehouseID int64
	ProductID   int64
	VariantID   int64
	Reserved    int
	Requested   int
}

func (e *OverReleaseError) Error() string {
	return fmt.Sprintf("cannot unreserve %d for warehouse %d product %d variant %d: only %d reserved",
		e.Requested, e.WarehouseID, e.ProductID, e.VariantID, e.Reserved)
}

// OverReceiptError reports a receipt that would push a line past its ordered
// quantity.
type OverReceiptError struct {
	OrderID     int64
	LineID      int64
	OrderedQty  int
	ReceivedQty int
	Requested   int
}

func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("line %d of order %d: receiving %d would exceed ordered %d (already received %d)",
		e.LineID, e.OrderID, e.Requested, e.OrderedQty, e.ReceivedQty)
}

// DuplicateSerialError reports a serial or IMEI already present among
// non-deleted units.
type DuplicateSerialError struct {
	SerialNumber string
}

func (e *DuplicateSerialError) Error() string {
	return fmt.Sprintf("serial number already exists: %s", e.SerialNumber)
}

// CodeConflictError reports a transaction code collision. It is retried once
// internally and only surfaced when the retry also collides.
type CodeConflictError struct {
	Code string
}

func (e *CodeConflictError) Error() string {
	return fmt.Sprintf("transaction code collision: %s", e.Code)
}

// ConcurrencyConflictError reports a lock wait timeout or stale row. The
// whole call is safe to retry from scratch; no partial effect remains.
type ConcurrencyConflictError struct {
	Resource string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s, retry the call", e.Resource)
}

// Classification helpers used at the HTTP boundary.

// IsQuantityViolation reports whether err is a business quantity-rule
// violation (insufficient stock, over-release, over-receipt, bad quantity).
func IsQuantityViolation(err error) bool {
	var (
		insuf  *InsufficientStockError
		overRl *OverReleaseError
		overRc *OverReceiptError
		badQty *InvalidQuantityError
	)
	return errors.As(err, &insuf) || errors.As(err, &overRl) ||
		errors.As(err, &overRc) || errors.As(err, &badQty)
}

// IsStateConflict reports whether err is a state or transition conflict.
func IsStateConflict(err error) bool {
	var (
		state *InvalidStateError
		trans *InvalidTransitionError
	)
	return errors.As(err, &state) || errors.As(err, &trans)
}

// IsUniqueness reports whether err is a uniqueness violation.
func IsUniqueness(err error) bool {
	var (
		dup  *DuplicateSerialError
		code *CodeConflictError
	)
	return errors.As(err, &dup) || errors.As(err, &code)
}

// IsNotFound reports whether err is a missing-entity failure.
func IsNotFound(err error) bool {
	var (
		nf   *NotFoundError
		line *UnknownLineError
	)
	return errors.As(err, &nf) || errors.As(err, &line)
}

// IsValidation reports whether err is a bad-input failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsRetryable reports whether the whole call can be safely retried.
func IsRetryable(err error) bool {
	var c *ConcurrencyConflictError
	return errors.As(err, &c)
}
