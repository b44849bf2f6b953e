package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ghost-crew/internal/models"
	"ghost-crew/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// JobCache caches a worker's job list for one date.
type JobCache interface {
	GetJobs(ctx context.Context, userID int, date string) ([]models.Job, bool)
	SetJobs(ctx context.Context, userID int, date string, jobs []models.Job)
	Invalidate(ctx context.Context, userID int, date string)
}

func jobsKey(userID int, date string) string {
	return fmt.Sprintf("jobs:%d:%s", userID, date)
}

type RedisJobCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisJobCache(client *redis.Client, ttl time.Duration) *RedisJobCache {
	return &RedisJobCache{client: client, ttl: ttl}
}

func (c *RedisJobCache) GetJobs(ctx context.Context, userID int, date string) ([]models.Job, bool) {
	cached, err := c.client.Get(ctx, jobsKey(userID, date)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.ErrorLogger.Error("Error reading jobs cache", zap.Error(err))
		}
		return nil, false
	}
	var jobs []models.Job
	if err := json.Unmarshal([]byte(cached), &jobs); err != nil {
		logger.ErrorLogger.Error("Error decoding cached jobs", zap.Error(err))
		return nil, false
	}
	return jobs, true
}

func (c *RedisJobCache) SetJobs(ctx context.Context, userID int, date string, jobs []models.Job) {
	jsonData, err := json.Marshal(jobs)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding jobs to JSON", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, jobsKey(userID, date), jsonData, c.ttl).Err(); err != nil {
		logger.ErrorLogger.Error("Error caching jobs", zap.Error(err))
	}
}

func (c *RedisJobCache) Invalidate(ctx context.Context, userID int, date string) {
	if err := c.client.Del(ctx, jobsKey(userID, date)).Err(); err != nil {
		logger.ErrorLogger.Error("Error invalidating jobs cache", zap.Error(err))
	}
}

// Nop never caches. Used when Redis is not configured.
type Nop struct{}

func (Nop) GetJobs(context.Context, int, string) ([]models.Job, bool) { return nil, false }
func (Nop) SetJobs(context.Context, int, string, []models.Job) {}
func (Nop) Invalidate(context.Context, int, string) {}
