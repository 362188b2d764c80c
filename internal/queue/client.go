package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/contenthub/contenthub/internal/logger"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned by Enqueue while the queue backend cannot
// be reached. Callers must treat it as non-fatal to the triggering
// request.
var ErrUnavailable = errors.New("queue: backend unavailable")

// Options control a single enqueue.
type Options struct {
	// Delay defers the job's first execution.
	Delay time.Duration
	// MaxRetry overrides the client default attempt limit.
	MaxRetry int
	// Timeout bounds a single execution attempt.
	Timeout time.Duration
}

// Client wraps the asynq producer with an explicit connected/degraded
// state. It is constructed eagerly but only becomes available after
// Connect succeeds; every Enqueue checks the flag first, so a dead
// broker never turns into a caller-visible crash.
type Client struct {
	redis     *redis.Client
	producer  *asynq.Client
	maxRetry  int
	available atomic.Bool
}

type ClientConfig struct {
	RedisURL   string
	MaxRetries int
}

// NewClient builds a client from configuration. A malformed URL is a
// configuration error and fails construction; an unreachable broker is
// not, the client just starts in the unavailable state until Connect.
func NewClient(cfg ClientConfig) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	maxRetry := cfg.MaxRetries
	if maxRetry <= 0 {
		maxRetry = 3
	}

	rdb := redis.NewClient(opt)
	return &Client{
		redis:    rdb,
		producer: asynq.NewClientFromRedisClient(rdb),
		maxRetry: maxRetry,
	}, nil
}

// Connect verifies the broker is reachable and flips the client into
// the available state. Safe to call again after a failure.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.redis.Ping(ctx).Err(); err != nil {
		c.available.Store(false)
		return fmt.Errorf("queue connect: %w", err)
	}
	c.available.Store(true)
	return nil
}

// Available reports whether the last broker interaction succeeded.
func (c *Client) Available() bool {
	return c.available.Load()
}

// HealthCheck pings the broker and updates the availability flag.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Connect(ctx)
}

// Enqueue places a typed job on the named queue. On broker failure the
// client degrades to unavailable and returns ErrUnavailable-compatible
// errors; it never panics into the caller.
func (c *Client) Enqueue(ctx context.Context, queueName, jobType string, payload AssetPayload, opts Options) (JobHandle, error) {
	if !c.available.Load() {
		return JobHandle{Queue: queueName}, ErrUnavailable
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return JobHandle{Queue: queueName}, fmt.Errorf("marshal payload: %w", err)
	}

	taskOpts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(c.effectiveMaxRetry(opts)),
	}
	if opts.Delay > 0 {
		taskOpts = append(taskOpts, asynq.ProcessIn(opts.Delay))
	}
	if opts.Timeout > 0 {
		taskOpts = append(taskOpts, asynq.Timeout(opts.Timeout))
	}

	task := asynq.NewTask(jobType, data)
	info, err := c.producer.EnqueueContext(ctx, task, taskOpts...)
	if err != nil {
		// Broker write failed; degrade until the next successful
		// health check so subsequent dispatches fail fast.
		c.available.Store(false)
		logger.FromContext(ctx).Warn("queue enqueue failed, degrading",
			"queue", queueName, "job_type", jobType, "error", err)
		return JobHandle{Queue: queueName}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return JobHandle{ID: info.ID, Queue: info.Queue, Queued: true}, nil
}

func (c *Client) effectiveMaxRetry(opts Options) int {
	if opts.MaxRetry > 0 {
		return opts.MaxRetry
	}
	return c.maxRetry
}

// Close releases the producer and its connection.
func (c *Client) Close() error {
	if err := c.producer.Close(); err != nil {
		return err
	}
	return c.redis.Close()
}

// RetryDelay returns the backoff schedule for failed jobs: the base
// delay doubling per attempt (2s, 4s, 8s with a 2s base).
func RetryDelay(base time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		if n < 1 {
			n = 1
		}
		return base << (n - 1)
	}
}
