package redisq

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

type ConsumerOptions struct {
	Concurrency    int
	PollTimeout    time.Duration
	DefaultTimeout time.Duration
	ResultTTL      time.Duration
}

// Consumer pops job ids and dispatches them through a registry. Each of
// Concurrency loops handles one job at a time. Delivery is at most once: an
// id whose hash cannot be read after BRPOP is dropped, never re-queued.
type Consumer struct {
	rdb      goredis.UniversalClient
	name     string
	registry *jobs.Registry
	log      *logger.Logger
	opts     ConsumerOptions
	now      func() time.Time
}

func NewConsumer(rdb goredis.UniversalClient, name string, registry *jobs.Registry, log *logger.Logger, opts ConsumerOptions) *Consumer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Second
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 300 * time.Second
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 24 * time.Hour
	}
	return &Consumer{
		rdb:      rdb,
		name:     name,
		registry: registry,
		log:      log.With("component", "RedisConsumer", "queue", name),
		opts:     opts,
		now:      time.Now,
	}
}

// Run blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("consumer started", "concurrency", c.opts.Concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.opts.Concurrency; i++ {
		slot := i
		g.Go(func() error {
			c.loop(gctx, slot)
			return nil
		})
	}
	err := g.Wait()
	c.log.Info("consumer stopped")
	return err
}

func (c *Consumer) loop(ctx context.Context, slot int) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		vals, err := c.rdb.BRPop(ctx, c.opts.PollTimeout, c.name).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("BRPOP failed", "slot", slot, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		if len(vals) != 2 {
			continue
		}
		c.Process(ctx, vals[1])
	}
}

// Process runs a single job by id. Exported for callers that pop ids themselves.
// Once an id has been popped the job is loaded and run to completion even if
// ctx is cancelled, bounded only by its own timeout, so shutdown drains
// in-flight work instead of stranding it in the running state.
func (c *Consumer) Process(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	key := jobKey(id)
	h, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		// The id is already off the list; the hash stays queued until its TTL.
		c.log.Error("load job failed; job dropped", "job_id", id, "error", err)
		return
	}
	if len(h) == 0 {
		c.log.Warn("job expired before it ran", "job_id", id)
		return
	}
	rec, err := parseRecord(h)
	if err != nil {
		c.finish(ctx, id, nil, err)
		return
	}
	if rec.ID == "" {
		rec.ID = id
	}

	if err := c.rdb.HSet(ctx, key,
		fieldStatus, string(jobs.StatusRunning),
		fieldStarted, c.now().UTC().Format(timestampShape),
	).Err(); err != nil {
		c.log.Warn("mark running failed", "job_id", id, "error", err)
	}

	timeout := rec.Timeout
	if timeout <= 0 {
		timeout = c.opts.DefaultTimeout
	}
	start := c.now()
	res, runErr := c.registry.DispatchWithTimeout(ctx, jobs.Job{ID: rec.ID, Type: rec.Type, Payload: rec.Payload}, timeout)
	c.log.Info("job done",
		"job_id", id,
		"job_type", rec.Type,
		"anchor_id", rec.Payload.AnchorID,
		"trace_id", rec.Payload.TraceID,
		"duration_ms", c.now().Sub(start).Milliseconds(),
		"failed", runErr != nil || res.Failed(),
	)
	c.finish(ctx, id, res, runErr)
}

func (c *Consumer) finish(ctx context.Context, id string, res *jobs.InferenceResult, runErr error) {
	fields, err := completion(res, runErr, c.now())
	if err != nil {
		fields, _ = completion(nil, err, c.now())
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	key := jobKey(id)
	_, err = c.rdb.TxPipelined(wctx, func(p goredis.Pipeliner) error {
		p.HSet(wctx, key, fields)
		p.Expire(wctx, key, c.opts.ResultTTL)
		return nil
	})
	if err != nil {
		c.log.Error("record job outcome failed", "job_id", id, "error", err)
	}
}
