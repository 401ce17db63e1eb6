package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clipforge/clipforge/internal/metrics"
	"github.com/clipforge/clipforge/pkg/models"
)

// Cache provides project caching using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetProject caches a project
func (c *Cache) SetProject(ctx context.Context, project *models.Project, ttl time.Duration) error {
	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	key := fmt.Sprintf("project:%s", project.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetProject retrieves a project from cache. A cache miss returns nil, nil.
func (c *Cache) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	key := fmt.Sprintf("project:%s", projectID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.CacheHitsTotal.WithLabelValues("miss").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project from cache: %w", err)
	}

	var project models.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}

	metrics.CacheHitsTotal.WithLabelValues("hit").Inc()
	return &project, nil
}

// DeleteProject removes a project from cache. Called on every document
// write so readers never see a stale edit.
func (c *Cache) DeleteProject(ctx context.Context, projectID string) error {
	key := fmt.Sprintf("project:%s", projectID)
	return c.client.Del(ctx, key).Err()
}
