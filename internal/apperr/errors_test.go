package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantityErrorsCarryAmounts(t *testing.T) {
	err := &InsufficientStockError{
		WarehouseID: 1, ProductID: 2, VariantID: 0, Available: 3, Requested: 5,
	}
	assert.Contains(t, err.Error(), "available=3")
	assert.Contains(t, err.Error(), "requested=5")

	over := &OverReceiptError{OrderID: 7, LineID: 9, OrderedQty: 10, ReceivedQty: 8, Requested: 4}
	assert.Contains(t, over.Error(), "exceed ordered 10")
	assert.Contains(t, over.Error(), "already received 8")
}

func TestClassificationThroughWrapping(t *testing.T) {
	base := &OverReceiptError{OrderID: 1, LineID: 2, OrderedQty: 10, ReceivedQty: 10, Requested: 1}
	wrapped := fmt.Errorf("receive failed: %w", base)

	assert.True(t, IsQuantityViolation(wrapped))
	assert.False(t, IsStateConflict(wrapped))
	assert.False(t, IsUniqueness(wrapped))

	var target *OverReceiptError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, int64(2), target.LineID)
}

func TestClassifiers(t *testing.T) {
	cases := []struct {
		err      error
		quantity bool
		state    bool
		unique   bool
		notFound bool
		valid    bool
		retry    bool
	}{
		{&InvalidQuantityError{Qty: -1}, true, false, false, false, false, false},
		{&OverReleaseError{Reserved: 1, Requested: 2}, true, false, false, false, false, false},
		{&InvalidStateError{Entity: "order", ID: 1, Status: "DELIVERED", Op: "receive"}, false, true, false, false, false, false},
		{&InvalidTransitionError{Entity: "unit", ID: 1, From: "SOLD", To: "IN_STOCK"}, false, true, false, false, false, false},
		{&DuplicateSerialError{SerialNumber: "SN1"}, false, false, true, false, false, false},
		{&CodeConflictError{Code: "INV-2026-00001"}, false, false, true, false, false, false},
		{&NotFoundError{Entity: "order", ID: 42}, false, false, false, true, false, false},
		{&UnknownLineError{OrderID: 1, ProductID: 2}, false, false, false, true, false, false},
		{&ValidationError{Field: "serials", Msg: "count mismatch"}, false, false, false, false, true, false},
		{&ConcurrencyConflictError{Resource: "stock row"}, false, false, false, false, false, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.quantity, IsQuantityViolation(tc.err), "%T quantity", tc.err)
		assert.Equal(t, tc.state, IsStateConflict(tc.err), "%T state", tc.err)
		assert.Equal(t, tc.unique, IsUniqueness(tc.err), "%T unique", tc.err)
		assert.Equal(t, tc.notFound, IsNotFound(tc.err), "%T notfound", tc.err)
		assert.Equal(t, tc.valid, IsValidation(tc.err), "%T validation", tc.err)
		assert.Equal(t, tc.retry, IsRetryable(tc.err), "%T retryable", tc.err)
	}
}
