package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/arsalyy/greeka-todo-api/domain"
)

// Cache wraps a task store with a Redis read-through cache for single task
// lookups. Writes refresh or evict the cached entry. Listing always goes to
// the backing store.
type Cache struct {
	base  domain.TaskStore
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base domain.TaskStore, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) Insert(ctx context.Context, d domain.TaskDraft) (domain.Task, error) {
	t, err := c.base.Insert(ctx, d)
	if err != nil {
		return domain.Task{}, err
	}
	c.store(ctx, t)
	return t, nil
}

func (c *Cache) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if t, ok := c.load(ctx, id); ok {
		return t, nil
	}
	t, err := c.base.GetByID(ctx, id)
	if err != nil || t == nil {
		return t, err
	}
	c.store(ctx, *t)
	return t, nil
}

func (c *Cache) Save(ctx context.Context, t domain.Task) (domain.Task, error) {
	saved, err := c.base.Save(ctx, t)
	if err != nil {
		c.evict(ctx, t.ID)
		return domain.Task{}, err
	}
	if saved.IsActive {
		c.store(ctx, saved)
	} else {
		c.evict(ctx, saved.ID)
	}
	return saved, nil
}

func (c *Cache) Query(ctx context.Context, q domain.TaskQuery) ([]domain.Task, int64, error) {
	return c.base.Query(ctx, q)
}

func (c *Cache) load(ctx context.Context, id uuid.UUID) (*domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, taskCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing store without failing.
			log.WithError(err).Debug("task cache read failed")
			_ = c.redis.Del(ctx, taskCacheKey(id)).Err()
		}
		return nil, false
	}
	var t domain.Task
	if err := sonic.Unmarshal(data, &t); err != nil || !t.IsActive {
		_ = c.redis.Del(ctx, taskCacheKey(id)).Err()
		return nil, false
	}
	return &t, true
}

func (c *Cache) store(ctx context.Context, t domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(t)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, taskCacheKey(t.ID), data, c.ttl).Err(); err != nil {
		log.WithError(err).Debug("task cache write failed")
	}
}

func (c *Cache) evict(ctx context.Context, id uuid.UUID) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, taskCacheKey(id)).Err()
}

func taskCacheKey(id uuid.UUID) string {
	return "task:" + id.String()
}
