package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// Catalog resolves the read-only master-data references the core consumes:
// product (serialized flag), warehouse (active flag), supplier existence.
// Lookups go through a redis cache with DB fallback; cache failures degrade
// to the database and are never fatal.
type Catalog struct {
	store  *store.Store
	redis  *redisclient.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalog creates a new catalog client
func NewCatalog(store *store.Store, redis *redisclient.Client, ttl time.Duration) *Catalog {
	return &Catalog{
		store:  store,
		redis:  redis,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// Product resolves a product reference or fails with NotFoundError.
func (c *Catalog) Product(ctx context.Context, id int64) (*models.ProductRef, error) {
	key := fmt.Sprintf("catalog:product:%d", id)

	if c.redis != nil {
		if payload, err := c.redis.GetJSON(ctx, key); err != nil {
			c.logger.Warn("Catalog cache read failed, falling back to DB",
				zap.String("key", key), zap.Error(err))
		} else if payload != nil {
			var p models.ProductRef
			if err := json.Unmarshal(payload, &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := c.store.GetProductRef(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if p == nil {
		return nil, &apperr.NotFoundError{Entity: "product", ID: id}
	}

	c.cache(ctx, key, p)
	return p, nil
}

// Warehouse resolves a warehouse reference or fails with NotFoundError.
func (c *Catalog) Warehouse(ctx context.Context, id int64) (*models.WarehouseRef, error) {
	key := fmt.Sprintf("catalog:warehouse:%d", id)

	if c.redis != nil {
		if payload, err := c.redis.GetJSON(ctx, key); err != nil {
			c.logger.Warn("Catalog cache read failed, falling back to DB",
				zap.String("key", key), zap.Error(err))
		} else if payload != nil {
			var w models.WarehouseRef
			if err := json.Unmarshal(payload, &w); err == nil {
				return &w, nil
			}
		}
	}

	w, err := c.store.GetWarehouseRef(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up warehouse: %w", err)
	}
	if w == nil {
		return nil, &apperr.NotFoundError{Entity: "warehouse", ID: id}
	}

	c.cache(ctx, key, w)
	return w, nil
}

// RequireActiveWarehouse fails unless the warehouse exists and is active.
func (c *Catalog) RequireActiveWarehouse(ctx context.Context, id int64) error {
	w, err := c.Warehouse(ctx, id)
	if err != nil {
		return err
	}
	if !w.IsActive {
		return &apperr.ValidationError{Field: "warehouse_id",
			Msg: fmt.Sprintf("warehouse %d is inactive", id)}
	}
	return nil
}

// RequireSupplier fails unless the supplier exists.
func (c *Catalog) RequireSupplier(ctx context.Context, id int64) error {
	exists, err := c.store.SupplierExists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up supplier: %w", err)
	}
	if !exists {
		return &apperr.NotFoundError{Entity: "supplier", ID: id}
	}
	return nil
}

func (c *Catalog) cache(ctx context.Context, key string, v interface{}) {
	if c.redis == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.SetJSON(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
