// Package cache provides a redis read-through decorator for the template
// store. Availability queries hit the active template for (branch, day) on
// every request; the decorator keeps those lookups off sqlite and
// invalidates on every template mutation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"dockbook/internal/models"
	"dockbook/internal/service"
)

// CachedTemplateStore wraps a TemplateStore with redis caching of active
// (branch, day) lookups. Cache failures degrade to the underlying store and
// are logged, never surfaced.
type CachedTemplateStore struct {
	service.TemplateStore

	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// New wraps store with a redis cache.
func New(store service.TemplateStore, redisClient *redis.Client, ttl time.Duration, logger *zerolog.Logger) *CachedTemplateStore {
	return &CachedTemplateStore{
		TemplateStore: store,
		redis:         redisClient,
		ttl:           ttl,
		logger:        logger,
	}
}

// cachedTemplate distinguishes a cached miss from an absent key.
type cachedTemplate struct {
	Found    bool                     `json:"found"`
	Template *models.ScheduleTemplate `json:"template,omitempty"`
}

func activeKey(branchID int64, dayOfWeek int) string {
	return fmt.Sprintf("template:active:%d:%d", branchID, dayOfWeek)
}

// GetActiveByBranchAndDay serves from cache when possible; misses fall
// through to the store and populate the cache, including negative results.
func (c *CachedTemplateStore) GetActiveByBranchAndDay(ctx context.Context, branchID int64, dayOfWeek int) (*models.ScheduleTemplate, error) {
	key := activeKey(branchID, dayOfWeek)

	if val, err := c.redis.Get(ctx, key).Result(); err == nil {
		var cached cachedTemplate
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			if !cached.Found {
				return nil, nil
			}
			return cached.Template, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("template cache read failed")
	}

	tpl, err := c.TemplateStore.GetActiveByBranchAndDay(ctx, branchID, dayOfWeek)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedTemplate{Found: tpl != nil, Template: tpl})
	if err == nil {
		if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("template cache write failed")
		}
	}
	return tpl, nil
}

// CreateTemplate writes through and invalidates the (branch, day) key.
func (c *CachedTemplateStore) CreateTemplate(ctx context.Context, tpl *models.ScheduleTemplate) error {
	if err := c.TemplateStore.CreateTemplate(ctx, tpl); err != nil {
		return err
	}
	c.invalidate(ctx, tpl.BranchID, tpl.DayOfWeek)
	return nil
}

// UpdateTemplate writes through and invalidates the (branch, day) key.
func (c *CachedTemplateStore) UpdateTemplate(ctx context.Context, tpl *models.ScheduleTemplate) error {
	if err := c.TemplateStore.UpdateTemplate(ctx, tpl); err != nil {
		return err
	}
	c.invalidate(ctx, tpl.BranchID, tpl.DayOfWeek)
	return nil
}

// DeleteTemplate resolves the row first so the right key can be dropped.
func (c *CachedTemplateStore) DeleteTemplate(ctx context.Context, id int64) error {
	tpl, err := c.TemplateStore.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := c.TemplateStore.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	if tpl != nil {
		c.invalidate(ctx, tpl.BranchID, tpl.DayOfWeek)
	}
	return nil
}

func (c *CachedTemplateStore) invalidate(ctx context.Context, branchID int64, dayOfWeek int) {
	if err := c.redis.Del(ctx, activeKey(branchID, dayOfWeek)).Err(); err != nil {
		c.logger.Warn().Err(err).
			Int64("branch_id", branchID).
			Int("day_of_week", dayOfWeek).
			Msg("template cache invalidation failed")
	}
}
