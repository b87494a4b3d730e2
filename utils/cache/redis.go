package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/model"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss is returned when no snapshot is cached for the project
	ErrMiss = errors.New("snapshot not in cache")
)

// SnapshotCache keeps the latest company snapshot per project in Redis so
// the snapshot endpoint does not hit the database on every read. Entries
// are version-guarded: a writer holding an older snapshot version never
// clobbers a newer one, which matters because regeneration and resumed
// jobs can race on the same project.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache connects to Redis and verifies the connection
func NewSnapshotCache(redisURL string, ttl time.Duration) (*SnapshotCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &SnapshotCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// snapshotKey builds the cache key for a project's latest snapshot
func snapshotKey(projectID uuid.UUID) string {
	return fmt.Sprintf("investai:snapshot:%s", projectID)
}

// Put caches a snapshot unless a newer version is already cached
func (c *SnapshotCache) Put(ctx context.Context, snapshot *model.CompanySnapshot) error {
	if snapshot == nil {
		return errors.New("nil snapshot")
	}

	key := snapshotKey(snapshot.ProjectID)

	if cached, err := c.Get(ctx, snapshot.ProjectID); err == nil && cached.Version > snapshot.Version {
		return nil
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Get returns the cached snapshot for a project, or ErrMiss
func (c *SnapshotCache) Get(ctx context.Context, projectID uuid.UUID) (*model.CompanySnapshot, error) {
	val, err := c.client.Get(ctx, snapshotKey(projectID)).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var snapshot model.CompanySnapshot
	if err := json.Unmarshal(val, &snapshot); err != nil {
		// A corrupt entry behaves like a miss; the next Put repairs it
		return nil, ErrMiss
	}
	return &snapshot, nil
}

// Invalidate drops a project's cached snapshot; called when the project is
// deleted so the cache cannot outlive the rows it mirrors
func (c *SnapshotCache) Invalidate(ctx context.Context, projectID uuid.UUID) error {
	return c.client.Del(ctx, snapshotKey(projectID)).Err()
}

// Close closes the underlying client
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}
