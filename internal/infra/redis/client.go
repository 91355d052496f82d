package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minhvu/snapcal/internal/core/domain"
)

// Client wraps Redis operations for the durable job queue and the
// notification channel.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks if Redis is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
const queueKey = "analysis:queue"

func jobKey(jobID string) string {
	return fmt.Sprintf("analysis:job:%s", jobID)
}

func lockKey(jobID string) string {
	return fmt.Sprintf("analysis:lock:%s", jobID)
}

// SaveJob writes the durable job record. This is the only durable state
// the pipeline owns.
func (c *Client) SaveJob(ctx context.Context, job domain.AnalysisJob) error {
	fields := map[string]any{
		"artifact_id":       job.ID,
		"artifact_location": job.ArtifactLocation,
		"captured_at_ms":    job.CapturedAt.UnixMilli(),
		"attempt_index":     job.AttemptIndex,
		"status":            string(job.Status),
	}
	if err := c.rdb.HSet(ctx, jobKey(job.ID), fields).Err(); err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	return nil
}

// GetJob loads a job record. Returns found=false when no record exists.
func (c *Client) GetJob(ctx context.Context, jobID string) (domain.AnalysisJob, bool, error) {
	values, err := c.rdb.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return domain.AnalysisJob{}, false, fmt.Errorf("hgetall failed: %w", err)
	}
	if len(values) == 0 {
		return domain.AnalysisJob{}, false, nil
	}

	capturedMs, err := strconv.ParseInt(values["captured_at_ms"], 10, 64)
	if err != nil {
		return domain.AnalysisJob{}, false, fmt.Errorf("invalid captured_at_ms: %w", err)
	}
	attempt, err := strconv.Atoi(values["attempt_index"])
	if err != nil {
		return domain.AnalysisJob{}, false, fmt.Errorf("invalid attempt_index: %w", err)
	}

	return domain.AnalysisJob{
		ID:               values["artifact_id"],
		ArtifactLocation: values["artifact_location"],
		CapturedAt:       time.UnixMilli(capturedMs),
		AttemptIndex:     attempt,
		Status:           domain.JobStatus(values["status"]),
	}, true, nil
}

// UpdateJobState updates attempt index and status on the durable record.
func (c *Client) UpdateJobState(ctx context.Context, jobID string, attemptIndex int, status domain.JobStatus) error {
	fields := map[string]any{
		"attempt_index": attemptIndex,
		"status":        string(status),
	}
	if err := c.rdb.HSet(ctx, jobKey(jobID), fields).Err(); err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	return nil
}

// Schedule places a job on the due-time queue. Score is the release time.
func (c *Client) Schedule(ctx context.Context, jobID string, readyAt time.Time) error {
	member := redis.Z{Score: float64(readyAt.UnixMilli()), Member: jobID}
	if err := c.rdb.ZAdd(ctx, queueKey, member).Err(); err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// DueJobs returns up to limit job ids whose release time has passed.
func (c *Client) DueJobs(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	ids, err := c.rdb.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	return ids, nil
}

// Dequeue removes a job from the due-time queue.
func (c *Client) Dequeue(ctx context.Context, jobID string) error {
	if err := c.rdb.ZRem(ctx, queueKey, jobID).Err(); err != nil {
		return fmt.Errorf("zrem failed: %w", err)
	}
	return nil
}

// QueueDepth returns the number of queued/scheduled jobs.
func (c *Client) QueueDepth(ctx context.Context) (int64, error) {
	return c.rdb.ZCard(ctx, queueKey).Result()
}

// AcquireAttemptLock takes the per-job attempt lock. The scheduler's
// uniqueness guarantee rests on it: the same job id never runs two attempts
// concurrently.
func (c *Client) AcquireAttemptLock(ctx context.Context, jobID string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, lockKey(jobID), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ReleaseAttemptLock releases the per-job attempt lock.
func (c *Client) ReleaseAttemptLock(ctx context.Context, jobID string) error {
	return c.rdb.Del(ctx, lockKey(jobID)).Err()
}
