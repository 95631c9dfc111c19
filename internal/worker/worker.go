package worker

import (
	"context"
	"log"
	"time"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
)

// SnapshotWorker applies committed stock movements to the redis snapshot
// cache so read paths can serve counters without hitting the database. The
// cache is advisory; a dropped event only means a snapshot expires and is
// reseeded from the post-commit values of the next movement.
type SnapshotWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	redis        *redisclient.Client
	ttl          time.Duration
}

// NewSnapshotWorker creates a new snapshot worker
func NewSnapshotWorker(consumer *broker.Consumer, redis *redisclient.Client, ttl time.Duration) *SnapshotWorker {
	w := &SnapshotWorker{
		consumer: consumer,
		redis:    redis,
		ttl:      ttl,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockMovement(w.handleStockMovement)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *SnapshotWorker) Start(ctx context.Context) error {
	log.Println("Starting stock snapshot worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SnapshotWorker) Stop() error {
	log.Println("Stopping stock snapshot worker...")
	return w.consumer.Close()
}

func (w *SnapshotWorker) handleStockMovement(ctx context.Context, event *models.StockMovementEvent) error {
	// Events for one key hash to one partition, but publishers can still
	// race after commit, so a stale absolute may briefly win. The next
	// movement or the snapshot TTL corrects it.
	return w.redis.InitStockSnapshot(ctx,
		event.WarehouseID, event.ProductID, event.VariantID,
		event.OnHand, event.Reserved, w.ttl)
}
