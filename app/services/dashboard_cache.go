package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/redis/go-redis/v9"
)

// DashboardCache stores computed dashboard payloads and short-lived locks.
// A nil Redis client turns caching off and keeps locks in process memory.
type DashboardCache struct {
	rc  *redis.Client
	ttl time.Duration

	mu    sync.Mutex
	locks map[string]time.Time
}

// NewDashboardCache creates the cache; ttl <= 0 disables summary caching
func NewDashboardCache(rc *redis.Client, ttl time.Duration) *DashboardCache {
	return &DashboardCache{rc: rc, ttl: ttl, locks: make(map[string]time.Time)}
}

// Enabled reports whether summaries are cached
func (c *DashboardCache) Enabled() bool {
	return c != nil && c.rc != nil && c.ttl > 0
}

// SummaryKey builds dash:summary:{workspace}:{hash} where hash covers every query parameter
func SummaryKey(workspaceID uint, parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s%d:%s", utils.DashboardSummaryKeyPrefix, workspaceID, hex.EncodeToString(h.Sum(nil))[:16])
}

// GetJSON loads key into dst. It reports false on a miss or when caching is off.
func (c *DashboardCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	bs, err := c.rc.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(bs, dst); err != nil {
		// a payload from an older layout is treated as a miss
		_ = c.rc.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// SetJSON stores v under key for the configured TTL
func (c *DashboardCache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.Enabled() {
		return nil
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rc.Set(ctx, key, bs, c.ttl).Err()
}

// InvalidateWorkspace drops every cached summary of the workspace
func (c *DashboardCache) InvalidateWorkspace(ctx context.Context, workspaceID uint) error {
	if c == nil || c.rc == nil {
		return nil
	}
	pattern := fmt.Sprintf("%s%d:*", utils.DashboardSummaryKeyPrefix, workspaceID)
	iter := c.rc.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rc.Del(ctx, keys...).Err()
}

// AcquireLock takes key for ttl. It reports false when someone else holds it.
func (c *DashboardCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if c.rc != nil {
		return c.rc.SetNX(ctx, key, "1", ttl).Result()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if exp, ok := c.locks[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.locks[key] = now.Add(ttl)
	return true, nil
}

// ReleaseLock frees key
func (c *DashboardCache) ReleaseLock(ctx context.Context, key string) error {
	if c.rc != nil {
		return c.rc.Del(ctx, key).Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, key)
	return nil
}
