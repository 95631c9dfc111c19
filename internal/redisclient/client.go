package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/apply_movement.lua
var applyMovementScript string

// Client is a read-side cache in front of the relational store. The database
// stays the single source of truth; every method here may fail without
// affecting a unit of work.
type Client struct {
	rdb         *redis.Client
	applyScript *redis.Script
}

// NewClient creates a new Redis client with the snapshot script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:         rdb,
		applyScript: redis.NewScript(applyMovementScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(warehouseID, productID, variantID int64) string {
	return fmt.Sprintf("stock:%d:%d:%d", warehouseID, productID, variantID)
}

// InitStockSnapshot seeds the snapshot hash with absolute counters.
func (c *Client) InitStockSnapshot(ctx context.Context, warehouseID, productID, variantID int64, onHand, reserved int, ttl time.Duration) error {
	key := stockKey(warehouseID, productID, variantID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "on_hand", onHand, "reserved", reserved)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// ApplyMovement atomically applies on-hand and reserved deltas to the
// snapshot hash via Lua, keeping both fields consistent with each other.
func (c *Client) ApplyMovement(ctx context.Context, warehouseID, productID, variantID int64, onHandDelta, reservedDelta int, ttl time.Duration) error {
	key := stockKey(warehouseID, productID, variantID)

	_, err := c.applyScript.Run(ctx, c.rdb,
		[]string{key}, onHandDelta, reservedDelta, int(ttl.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("apply movement script failed: %w", err)
	}
	return nil
}

// GetStockSnapshot retrieves cached counters. found is false on a cache miss.
func (c *Client) GetStockSnapshot(ctx context.Context, warehouseID, productID, variantID int64) (onHand, reserved int, found bool, err error) {
	key := stockKey(warehouseID, productID, variantID)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(result) == 0 {
		return 0, 0, false, nil
	}

	onHand, _ = strconv.Atoi(result["on_hand"])
	reserved, _ = strconv.Atoi(result["reserved"])
	return onHand, reserved, true, nil
}

// SetJSON caches a JSON payload under a namespaced key with TTL.
func (c *Client) SetJSON(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, payload, ttl).Err()
}

// GetJSON retrieves a cached JSON payload, or nil on a miss.
func (c *Client) GetJSON(ctx context.Context, key string) ([]byte, error) {
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}
