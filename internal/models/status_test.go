package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderTransitions(t *testing.T) {
	statuses := []string{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled,
	}

	allowed := map[[2]string]bool{
		{OrderStatusPending, OrderStatusConfirmed}:   true,
		{OrderStatusPending, OrderStatusCancelled}:   true,
		{OrderStatusConfirmed, OrderStatusDelivered}: true,
		{OrderStatusConfirmed, OrderStatusCancelled}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			got := CanTransitionOrder(from, to)
			assert.Equal(t, allowed[[2]string{from, to}], got, "%s -> %s", from, to)
		}
	}
}

func TestOrderTransitionUnknownStatus(t *testing.T) {
	assert.False(t, CanTransitionOrder("BOGUS", OrderStatusConfirmed))
	assert.False(t, CanTransitionOrder(OrderStatusPending, "BOGUS"))
}

func TestOrderGuards(t *testing.T) {
	assert.True(t, OrderReceivable(OrderStatusPending))
	assert.True(t, OrderReceivable(OrderStatusConfirmed))
	assert.False(t, OrderReceivable(OrderStatusDelivered))
	assert.False(t, OrderReceivable(OrderStatusCancelled))

	assert.True(t, OrderEditable(OrderStatusPending))
	assert.False(t, OrderEditable(OrderStatusConfirmed))

	assert.True(t, OrderDeletable(OrderStatusPending))
	assert.True(t, OrderDeletable(OrderStatusCancelled))
	assert.False(t, OrderDeletable(OrderStatusConfirmed))
	assert.False(t, OrderDeletable(OrderStatusDelivered))
}

func TestUnitTransitionsFromInStock(t *testing.T) {
	// IN_STOCK may enter every other state.
	for _, to := range []string{
		UnitStatusSold, UnitStatusWarranty, UnitStatusRepair, UnitStatusBroken,
		UnitStatusTransferring, UnitStatusDemo, UnitStatusScrapped, UnitStatusLost,
	} {
		assert.True(t, CanTransitionUnit(UnitStatusInStock, to), "IN_STOCK -> %s", to)
	}
	assert.False(t, CanTransitionUnit(UnitStatusInStock, UnitStatusInStock))
}

func TestUnitTransitionsRepairAndWarranty(t *testing.T) {
	for _, from := range []string{UnitStatusWarranty, UnitStatusRepair} {
		assert.True(t, CanTransitionUnit(from, UnitStatusInStock))
		assert.True(t, CanTransitionUnit(from, UnitStatusScrapped))
		assert.False(t, CanTransitionUnit(from, UnitStatusSold))
		assert.False(t, CanTransitionUnit(from, UnitStatusTransferring))
	}
}

func TestUnitTransitionsTransferring(t *testing.T) {
	assert.True(t, CanTransitionUnit(UnitStatusTransferring, UnitStatusInStock))
	assert.True(t, CanTransitionUnit(UnitStatusTransferring, UnitStatusLost))
	assert.False(t, CanTransitionUnit(UnitStatusTransferring, UnitStatusSold))
	assert.False(t, CanTransitionUnit(UnitStatusTransferring, UnitStatusScrapped))
}

func TestUnitTerminalStatesHaveNoExit(t *testing.T) {
	all := []string{
		UnitStatusInStock, UnitStatusSold, UnitStatusWarranty, UnitStatusRepair,
		UnitStatusBroken, UnitStatusTransferring, UnitStatusDemo, UnitStatusScrapped,
		UnitStatusLost,
	}
	for _, from := range []string{UnitStatusSold, UnitStatusScrapped, UnitStatusLost, UnitStatusBroken, UnitStatusDemo} {
		for _, to := range all {
			assert.False(t, CanTransitionUnit(from, to), "%s -> %s", from, to)
		}
	}
}

func TestIsUnitStatus(t *testing.T) {
	assert.True(t, IsUnitStatus(UnitStatusInStock))
	assert.True(t, IsUnitStatus(UnitStatusLost))
	assert.False(t, IsUnitStatus("MISSING"))
	assert.False(t, IsUnitStatus(""))
}

func TestStockRowAvailable(t *testing.T) {
	row := &StockRow{OnHand: 10, Reserved: 3}
	assert.Equal(t, 7, row.Available())
}

func TestLineFullyReceived(t *testing.T) {
	line := &PurchaseOrderLine{OrderedQty: 10, ReceivedQty: 4}
	assert.False(t, line.FullyReceived())

	line.ReceivedQty = 10
	assert.True(t, line.FullyReceived())
}
