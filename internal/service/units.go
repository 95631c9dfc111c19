package service

import (
	"context"
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

// UnitService owns the serialized unit lifecycle. Each unit moves through
// the status machine in models; terminal states are left only via the logged
// administrative override.
type UnitService struct {
	store     *store.Store
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewUnitService creates a new serialized unit service
func NewUnitService(store *store.Store, publisher *broker.EventPublisher) *UnitService {
	return &UnitService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateUnitInput carries the fields of a new serialized unit.
type CreateUnitInput struct {
	SerialNumber string
	IMEI1        *string
	ProductID    int64
	WarehouseID  int64
	ImportPrice  int64
	ImportDate   time.Time
	Notes        string
}

// CreateUnit registers a new unit in its own unit of work.
func (u *UnitService) CreateUnit(ctx context.Context, in CreateUnitInput) (*models.SerializedUnit, error) {
	ctx, span := util.StartSpan(ctx, "UnitService.CreateUnit")
	defer span.End()

	var unit *models.SerializedUnit
	err := u.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		unit, err = u.CreateUnitTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// CreateUnitTx registers a new unit inside the caller's transaction; the
// receiving workflow uses it so serialized receipts share one unit of work.
// Duplicate serials among non-deleted units fail with DuplicateSerialError.
func (u *UnitService) CreateUnitTx(ctx context.Context, tx *sqlx.Tx, in CreateUnitInput) (*models.SerializedUnit, error) {
	if in.SerialNumber == "" {
		return nil, &apperr.ValidationError{Field: "serial_number", Msg: "must not be empty"}
	}

	taken, err := u.store.SerialInUse(ctx, tx, in.SerialNumber, in.IMEI1)
	if err != nil {
		return nil, fmt.Errorf("failed to check serial uniqueness: %w", err)
	}
	if taken {
		return nil, &apperr.DuplicateSerialError{SerialNumber: in.SerialNumber}
	}

	importDate := in.ImportDate
	if importDate.IsZero() {
		importDate = time.Now()
	}

	unit := &models.SerializedUnit{
		SerialNumber: in.SerialNumber,
		IMEI1:        in.IMEI1,
		ProductID:    in.ProductID,
		WarehouseID:  in.WarehouseID,
		Status:       models.UnitStatusInStock,
		ImportPrice:  in.ImportPrice,
		ImportDate:   importDate,
		Notes:        in.Notes,
	}
	if err := u.store.InsertUnit(ctx, tx, unit); err != nil {
		// Unique index backstop for a racing duplicate insert.
		if store.IsUniqueViolation(err, "serialized_units") {
			return nil, &apperr.DuplicateSerialError{SerialNumber: in.SerialNumber}
		}
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}

	util.UnitsCreatedTotal.Inc()
	return unit, nil
}

// GetUnit retrieves a non-deleted unit.
func (u *UnitService) GetUnit(ctx context.Context, id int64) (*models.SerializedUnit, error) {
	unit, err := u.store.GetUnitByID(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	if unit == nil {
		return nil, &apperr.NotFoundError{Entity: "unit", ID: id}
	}
	return unit, nil
}

// ListUnits returns a page of non-deleted units.
func (u *UnitService) ListUnits(ctx context.Context, f store.UnitFilter) ([]models.SerializedUnit, error) {
	return u.store.ListUnits(ctx, f)
}

// UpdateStatus moves a unit along a legal lifecycle edge. Illegal edges fail
// with InvalidTransitionError and leave both status and warehouse untouched.
// TRANSFERRING must be entered via Dispatch so the destination is recorded.
func (u *UnitService) UpdateStatus(ctx context.Context, unitID int64, newStatus, note string, actorID int64) (*models.SerializedUnit, error) {
	ctx, span := util.StartSpan(ctx, "UnitService.UpdateStatus")
	defer span.End()

	if !models.IsUnitStatus(newStatus) {
		return nil, &apperr.ValidationError{Field: "status",
			Msg: fmt.Sprintf("unknown unit status %q", newStatus)}
	}
	if newStatus == models.UnitStatusTransferring {
		return nil, &apperr.ValidationError{Field: "status",
			Msg: "a transfer needs a destination, use the dispatch operation"}
	}

	return u.transition(ctx, unitID, newStatus, note, actorID, nil)
}

// Dispatch starts a warehouse transfer: IN_STOCK -> TRANSFERRING with the
// destination recorded. The unit keeps its source warehouse while in transit.
func (u *UnitService) Dispatch(ctx context.Context, unitID, destWarehouseID int64, note string, actorID int64) (*models.SerializedUnit, error) {
	ctx, span := util.StartSpan(ctx, "UnitService.Dispatch")
	defer span.End()

	return u.transition(ctx, unitID, models.UnitStatusTransferring, note, actorID, &destWarehouseID)
}

// Arrive completes a transfer: TRANSFERRING -> IN_STOCK, rewriting the
// unit's warehouse to the recorded destination.
func (u *UnitService) Arrive(ctx context.Context, unitID int64, actorID int64) (*models.SerializedUnit, error) {
	ctx, span := util.StartSpan(ctx, "UnitService.Arrive")
	defer span.End()

	return u.transition(ctx, unitID, models.UnitStatusInStock, "", actorID, nil)
}

func (u *UnitService) transition(ctx context.Context, unitID int64, newStatus, note string, actorID int64, destWarehouseID *int64) (*models.SerializedUnit, error) {
	var unit *models.SerializedUnit
	var oldStatus string

	err := u.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		unit, err = u.store.LockUnit(ctx, tx, unitID)
		if err != nil {
			return fmt.Errorf("failed to lock unit: %w", err)
		}
		if unit == nil {
			return &apperr.NotFoundError{Entity: "unit", ID: unitID}
		}

		oldStatus = unit.Status
		if !models.CanTransitionUnit(oldStatus, newStatus) {
			return &apperr.InvalidTransitionError{
				Entity: "unit", ID: unitID, From: oldStatus, To: newStatus,
			}
		}

		warehouseID := unit.WarehouseID
		dest := unit.DestWarehouseID

		switch {
		case newStatus == models.UnitStatusTransferring:
			dest = destWarehouseID
		case oldStatus == models.UnitStatusTransferring && newStatus == models.UnitStatusInStock:
			// Arrival moves the unit to the recorded destination.
			if unit.DestWarehouseID == nil {
				return &apperr.ValidationError{Field: "dest_warehouse_id",
					Msg: fmt.Sprintf("unit %d is transferring without a destination", unitID)}
			}
			warehouseID = *unit.DestWarehouseID
			dest = nil
		}

		notes := unit.Notes
		if note != "" {
			if notes != "" {
				notes += "\n"
			}
			notes += note
		}

		if err := u.store.UpdateUnitStatus(ctx, tx, unitID, newStatus, warehouseID, dest, notes); err != nil {
			return fmt.Errorf("failed to update unit status: %w", err)
		}

		unit.Status = newStatus
		unit.WarehouseID = warehouseID
		unit.DestWarehouseID = dest
		unit.Notes = notes
		return nil
	})
	if err != nil {
		return nil, mapConcurrency(err, "unit")
	}

	util.UnitTransitionsTotal.WithLabelValues(newStatus).Inc()
	u.logger.Info("Unit status changed",
		zap.Int64("unit_id", unitID),
		zap.String("old_status", oldStatus),
		zap.String("new_status", newStatus),
		zap.Int64("actor_id", actorID))

	u.publishUnitEvent(ctx, unit, oldStatus)
	return unit, nil
}

// OverrideStatus is the administrative correction path for states the normal
// machine treats as terminal. It bypasses the transition map but requires an
// actor and reason, writes an ADJUSTMENT ledger record referencing the unit,
// and logs at Warn level; it is never a silent transition.
func (u *UnitService) OverrideStatus(ctx context.Context, unitID int64, newStatus string, actorID int64, reason string) (*models.SerializedUnit, error) {
	ctx, span := util.StartSpan(ctx, "UnitService.OverrideStatus")
	defer span.End()

	if !models.IsUnitStatus(newStatus) {
		return nil, &apperr.ValidationError{Field: "status",
			Msg: fmt.Sprintf("unknown unit status %q", newStatus)}
	}
	if reason == "" {
		return nil, &apperr.ValidationError{Field: "reason",
			Msg: "an override requires a reason"}
	}

	var unit *models.SerializedUnit
	var oldStatus string

	err := u.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		unit, err = u.store.LockUnit(ctx, tx, unitID)
		if err != nil {
			return fmt.Errorf("failed to lock unit: %w", err)
		}
		if unit == nil {
			return &apperr.NotFoundError{Entity: "unit", ID: unitID}
		}

		oldStatus = unit.Status

		notes := unit.Notes
		if notes != "" {
			notes += "\n"
		}
		notes += fmt.Sprintf("override %s -> %s by actor %d: %s", oldStatus, newStatus, actorID, reason)

		if err := u.store.UpdateUnitStatus(ctx, tx, unitID, newStatus, unit.WarehouseID, unit.DestWarehouseID, notes); err != nil {
			return fmt.Errorf("failed to override unit status: %w", err)
		}

		year := time.Now().Year()
		seq, err := u.store.ReserveCodes(ctx, tx, store.ScopeTransaction, year, 1)
		if err != nil {
			return err
		}
		rec := &models.InventoryTransaction{
			TransactionCode: store.FormatCode(store.ScopeTransaction, year, seq),
			Type:            models.TransactionTypeAdjustment,
			WarehouseID:     unit.WarehouseID,
			ProductID:       unit.ProductID,
			UnitID:          &unitID,
			Quantity:        0,
			ReferenceID:     &unitID,
		}
		if err := u.store.InsertTransaction(ctx, tx, rec); err != nil {
			return err
		}

		unit.Status = newStatus
		unit.Notes = notes
		return nil
	})
	if err != nil {
		return nil, mapConcurrency(err, "unit")
	}

	util.UnitTransitionsTotal.WithLabelValues(newStatus).Inc()
	util.TransactionCodesIssuedTotal.Inc()
	u.logger.Warn("Unit status overridden",
		zap.Int64("unit_id", unitID),
		zap.String("old_status", oldStatus),
		zap.String("new_status", newStatus),
		zap.Int64("actor_id", actorID),
		zap.String("reason", reason))

	u.publishUnitEvent(ctx, unit, oldStatus)
	return unit, nil
}

// DeleteUnit tombstones a unit. The row stays behind for ledger references;
// its serial number becomes reusable immediately.
func (u *UnitService) DeleteUnit(ctx context.Context, unitID, actorID int64) error {
	ctx, span := util.StartSpan(ctx, "UnitService.DeleteUnit")
	defer span.End()

	err := u.store.WithinTx(ctx, func(tx *sqlx.Tx) error {
		unit, err := u.store.LockUnit(ctx, tx, unitID)
		if err != nil {
			return fmt.Errorf("failed to lock unit: %w", err)
		}
		if unit == nil {
			return &apperr.NotFoundError{Entity: "unit", ID: unitID}
		}
		if unit.Status == models.UnitStatusTransferring {
			return &apperr.InvalidStateError{
				Entity: "unit", ID: unitID, Status: unit.Status, Op: "delete",
			}
		}
		return u.store.SoftDeleteUnit(ctx, tx, unitID)
	})
	if err != nil {
		return mapConcurrency(err, "unit")
	}

	u.logger.Info("Unit deleted",
		zap.Int64("unit_id", unitID),
		zap.Int64("actor_id", actorID))
	return nil
}

func (u *UnitService) publishUnitEvent(ctx context.Context, unit *models.SerializedUnit, oldStatus string) {
	if u.publisher == nil {
		return
	}
	event := &models.UnitStatusChangedEvent{
		UnitID:       unit.ID,
		SerialNumber: unit.SerialNumber,
		OldStatus:    oldStatus,
		NewStatus:    unit.Status,
		WarehouseID:  unit.WarehouseID,
	}
	if err := u.publisher.PublishUnitStatusChanged(ctx, event); err != nil {
		u.logger.Error("Failed to publish UnitStatusChanged event", zap.Error(err))
	}
}
