package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/manyeka-petros/malonda-web-app/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	productKeyPrefix   = "product:"
	productListKey     = "products:all"
	blacklistKeyPrefix = "token:blacklist:"

	productCacheTTL = 5 * time.Minute
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

	return &Client{rdb: rdb}, nil
}

// Ping reports whether Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CacheProduct stores a product read-through entry
func (c *Client) CacheProduct(ctx context.Context, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s%d", productKeyPrefix, product.ID)
	return c.rdb.Set(ctx, key, data, productCacheTTL).Err()
}

// GetCachedProduct retrieves a cached product; a miss returns (nil, nil)
func (c *Client) GetCachedProduct(ctx context.Context, productID int64) (*models.Product, error) {
	key := fmt.Sprintf("%s%d", productKeyPrefix, productID)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CacheProductList stores the full product listing
func (c *Client) CacheProductList(ctx context.Context, products []models.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productListKey, data, productCacheTTL).Err()
}

// GetCachedProductList retrieves the cached listing; a miss returns (nil, nil)
func (c *Client) GetCachedProductList(ctx context.Context) ([]models.Product, error) {
	data, err := c.rdb.Get(ctx, productListKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// InvalidateProduct drops a product entry and the listing after any write
func (c *Client) InvalidateProduct(ctx context.Context, productID int64) error {
	key := fmt.Sprintf("%s%d", productKeyPrefix, productID)
	return c.rdb.Del(ctx, key, productListKey).Err()
}

// BlacklistToken records a revoked refresh token until its natural expiry
func (c *Client) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, blacklistKeyPrefix+tokenID, "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a refresh token has been revoked
func (c *Client) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
