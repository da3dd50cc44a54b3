package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
)

const cacheKeyPrefix = "calendar_sync:"

// CachedBackend кэширует чтения в Redis.
// Любая запись увеличивает версию календаря, и старые ключи перестают читаться.
// Ошибки Redis только логируются, запрос уходит во внутренний бэкенд
type CachedBackend struct {
	inner      Backend
	client     *redis.Client
	calendarID string
	ttl        time.Duration
	logger     *zap.Logger
}

func NewCachedBackend(inner Backend, client *redis.Client, calendarID string, ttl time.Duration, logger *zap.Logger) *CachedBackend {
	return &CachedBackend{
		inner:      inner,
		client:     client,
		calendarID: calendarID,
		ttl:        ttl,
		logger:     logger,
	}
}

func (c *CachedBackend) versionKey() string {
	return fmt.Sprintf("%s%s:version", cacheKeyPrefix, c.calendarID)
}

func (c *CachedBackend) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *CachedBackend) invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.versionKey()).Err(); err != nil {
		c.logger.Warn("Failed to invalidate calendar cache", zap.Error(err))
	}
}

func (c *CachedBackend) TestConnection(ctx context.Context) bool {
	return c.inner.TestConnection(ctx)
}

func (c *CachedBackend) CreateEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	created, err := c.inner.CreateEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return created, nil
}

func (c *CachedBackend) GetEvent(ctx context.Context, eventID string) (*calendar.Event, error) {
	v, err := c.version(ctx)
	if err != nil {
		c.logger.Warn("Calendar cache unavailable", zap.Error(err))
		return c.inner.GetEvent(ctx, eventID)
	}

	key := fmt.Sprintf("%s%s:v%d:event:%s", cacheKeyPrefix, c.calendarID, v, eventID)

	var cached calendar.Event
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	event, err := c.inner.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, event)
	return event, nil
}

func (c *CachedBackend) ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	v, err := c.version(ctx)
	if err != nil {
		c.logger.Warn("Calendar cache unavailable", zap.Error(err))
		return c.inner.ListEvents(ctx, timeMin, timeMax, maxResults)
	}

	key := fmt.Sprintf("%s%s:v%d:events:%d:%d:%d", cacheKeyPrefix, c.calendarID, v,
		timeMin.UnixNano(), timeMax.UnixNano(), normalizeMaxResults(maxResults))

	var cached []*calendar.Event
	if c.load(ctx, key, &cached) {
		c.logger.Debug("Calendar cache hit", zap.String("key", key))
		return cached, nil
	}

	events, err := c.inner.ListEvents(ctx, timeMin, timeMax, maxResults)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, events)
	return events, nil
}

func (c *CachedBackend) UpdateEvent(ctx context.Context, eventID string, event *calendar.Event) error {
	if err := c.inner.UpdateEvent(ctx, eventID, event); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CachedBackend) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.inner.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CachedBackend) load(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read calendar cache", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Corrupt calendar cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedBackend) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write calendar cache", zap.String("key", key), zap.Error(err))
	}
}
