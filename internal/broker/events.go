package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"inventory-service/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events. Events are published only
// after the enclosing unit of work commits; failures are logged by callers
// and never roll back committed state.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishStockMovement publishes a committed stock quantity change.
func (ep *EventPublisher) PublishStockMovement(ctx context.Context, event *models.StockMovementEvent) error {
	event.BaseEvent = newBaseEvent(models.EventTypeStockMovement)
	key := fmt.Sprintf("stock-%d-%d-%d", event.WarehouseID, event.ProductID, event.VariantID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderReceived publishes a committed ReceiveItems result.
func (ep *EventPublisher) PublishOrderReceived(ctx context.Context, event *models.OrderReceivedEvent) error {
	event.BaseEvent = newBaseEvent(models.EventTypeOrderReceived)
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderStatusChanged publishes a committed order status transition.
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	event.BaseEvent = newBaseEvent(models.EventTypeOrderStatusChanged)
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishUnitStatusChanged publishes a committed unit transition.
func (ep *EventPublisher) PublishUnitStatusChanged(ctx context.Context, event *models.UnitStatusChangedEvent) error {
	event.BaseEvent = newBaseEvent(models.EventTypeUnitStatusChanged)
	key := fmt.Sprintf("unit-%d", event.UnitID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered callbacks.
type EventHandler struct {
	onStockMovement func(context.Context, *models.StockMovementEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnStockMovement registers a handler for StockMovement events
func (eh *EventHandler) OnStockMovement(handler func(context.Context, *models.StockMovementEvent) error) {
	eh.onStockMovement = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeStockMovement:
		if eh.onStockMovement != nil {
			var event models.StockMovementEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockMovement event: %w", err)
			}
			return eh.onStockMovement(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
