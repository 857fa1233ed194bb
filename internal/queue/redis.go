package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/cloud-gov/pages-core-sub005/internal/config"
)

// A score is priority*2^40 plus milliseconds since scoreEpoch. 2^40 ms is
// about 34 years, and capping priority at MaxScorePriority keeps every score
// an exact float64 integer, so equal priorities stay in submission order.
const (
	timeBits         = 40
	MaxScorePriority = 1<<(53-timeBits) - 1
)

var scoreEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// RedisBackend stores each queue as a sorted set of job IDs scored by
// priority and submission time, next to a hash holding the job documents.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(cfg config.RedisConfig) (*RedisBackend, func(), error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, func() {}, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisBackendWithClient(client, cfg.Prefix), func() { _ = client.Close() }, nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "pages"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// QueueKey is the sorted set holding the queue's job IDs.
func (b *RedisBackend) QueueKey(queue string) string {
	return fmt.Sprintf("%s:queue:%s", b.prefix, queue)
}

// JobsKey is the hash holding the queue's job documents by ID.
func (b *RedisBackend) JobsKey(queue string) string {
	return b.QueueKey(queue) + ":jobs"
}

// PausedKey marks a queue as not accepting work while it exists.
func (b *RedisBackend) PausedKey(queue string) string {
	return b.QueueKey(queue) + ":paused"
}

// Score orders jobs by priority, then by submission time. Priorities above
// MaxScorePriority share the last priority band.
func Score(priority int, at time.Time) float64 {
	priority = min(max(priority, 0), MaxScorePriority)
	elapsed := min(max(at.Sub(scoreEpoch).Milliseconds(), 0), 1<<timeBits-1)
	return float64(int64(priority)<<timeBits | elapsed)
}

// Submit writes the job document and its queue entry in one MULTI block.
func (b *RedisBackend) Submit(ctx context.Context, queue string, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, b.JobsKey(queue), job.ID, data)
		pipe.ZAdd(ctx, b.QueueKey(queue), redis.Z{Score: Score(job.Priority, job.CreatedAt), Member: job.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("submit job %s to %s: %w", job.ID, queue, err)
	}
	return nil
}

// IsReady reports whether Redis answers and the queue is not paused.
func (b *RedisBackend) IsReady(ctx context.Context, queue string) (bool, error) {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return false, err
	}
	n, err := b.client.Exists(ctx, b.PausedKey(queue)).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
