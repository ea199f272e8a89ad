// Package cache keeps the latest analysis report in Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
)

const latestKey = "report:latest"

// ReportCache stores serialized reports under a key prefix
type ReportCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewClient creates a Redis client
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewReportCache wraps client. A zero ttl keeps entries until overwritten.
func NewReportCache(client *redis.Client, prefix string, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *ReportCache) key(name string) string {
	return c.prefix + name
}

// Ping checks the connection
func (c *ReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetLatest returns the cached report, or nil without error on a miss
func (c *ReportCache) GetLatest(ctx context.Context) (*analytics.Report, error) {
	data, err := c.client.Get(ctx, c.key(latestKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached report: %w", err)
	}

	var report analytics.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &report, nil
}

// SetLatest stores report as the latest run
func (c *ReportCache) SetLatest(ctx context.Context, report *analytics.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := c.client.Set(ctx, c.key(latestKey), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// Invalidate drops the cached report
func (c *ReportCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key(latestKey)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached report: %w", err)
	}
	return nil
}

// Close closes the client
func (c *ReportCache) Close() error {
	return c.client.Close()
}
