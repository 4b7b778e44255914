package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// Cache is what the task list decorator needs from a cache.
type Cache interface {
	Set(key string, value interface{}, ttl time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
}

const l1PromotionTTL = time.Minute

// MultiLevelCache reads through a process-local L1 and an optional Redis L2.
// Without a Redis tier it degrades to the memory cache alone.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	metrics *Metrics
}

func NewMultiLevelCache(redisCache *RedisCache) *MultiLevelCache {
	return &MultiLevelCache{
		l1:      NewMemoryCache(),
		l2:      redisCache,
		metrics: &Metrics{},
	}
}

func (c *MultiLevelCache) Set(key string, value interface{}, ttl time.Duration) error {
	c.metrics.recordWrite()
	c.l1.Set(key, value, ttl)

	if c.l2 != nil {
		if err := c.l2.Set(key, value, ttl); err != nil {
			c.metrics.recordError()
			return err
		}
	}

	return nil
}

func (c *MultiLevelCache) Get(key string, dest interface{}) error {
	if value, found := c.l1.Get(key); found {
		c.metrics.recordHit(false)
		return copyValue(value, dest)
	}

	if c.l2 == nil {
		c.metrics.recordMiss()
		return ErrCacheMiss
	}

	err := c.l2.Get(key, dest)
	switch {
	case err == nil:
		c.metrics.recordHit(true)
		if raw, mErr := json.Marshal(dest); mErr == nil {
			c.l1.Set(key, json.RawMessage(raw), l1PromotionTTL)
		}
	case errors.Is(err, ErrCacheMiss):
		c.metrics.recordMiss()
	default:
		c.metrics.recordError()
	}
	return err
}

func (c *MultiLevelCache) Delete(key string) error {
	c.metrics.recordDelete()
	c.l1.Delete(key)

	if c.l2 != nil {
		if err := c.l2.Delete(key); err != nil {
			c.metrics.recordError()
			return err
		}
	}

	return nil
}

func (c *MultiLevelCache) Metrics() *Metrics {
	return c.metrics
}

// SweepLocal drops expired entries from the in-process tier.
func (c *MultiLevelCache) SweepLocal() int {
	n := c.l1.Sweep()
	c.metrics.recordEvict(n)
	return n
}

// Health reports the Redis tier; a memory-only cache is always healthy.
func (c *MultiLevelCache) Health() error {
	if c.l2 != nil {
		return c.l2.Health()
	}

	return nil
}

func (c *MultiLevelCache) Close() error {
	if c.l2 != nil {
		return c.l2.Close()
	}

	return nil
}

func copyValue(src, dest interface{}) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr {
		return fmt.Errorf("destination must be a pointer, got %T", dest)
	}

	if destValue.IsNil() {
		return fmt.Errorf("destination pointer is nil")
	}

	// JSON round-trip so callers never share slices with the cache.
	return copyValueViaJSON(src, dest)
}

func copyValueViaJSON(src, dest interface{}) error {
	jsonData, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to marshal source value: %w", err)
	}

	err = json.Unmarshal(jsonData, dest)
	if err != nil {
		return fmt.Errorf("failed to unmarshal to destination: %w", err)
	}

	return nil
}
