package redisq

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
	"github.com/abdelatifsd/Adjacent/internal/platform/redisdb"
)

func TestQueueAndConsumerAgainstRedis(t *testing.T) {
	if os.Getenv("REDIS_INTEGRATION") != "1" {
		t.Skip("set REDIS_INTEGRATION=1 to run against a live Redis")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb, err := redisdb.NewClient(ctx, logger.NewNop(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer rdb.Close()

	name := "adjacent_test_" + uuid.NewString()[:8]
	defer rdb.Del(context.Background(), name)

	q, err := NewQueue(rdb, name, time.Minute)
	require.NoError(t, err)

	missing, err := q.Status(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusNotFound, missing.Status)

	id, err := q.Enqueue(ctx, jobs.NewInferencePayload("p1", []string{"p2"}, "t"), 10*time.Second)
	require.NoError(t, err)
	defer rdb.Del(context.Background(), jobKey(id))

	info, err := q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusQueued, info.Status)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	reg := jobs.NewRegistry()
	require.NoError(t, reg.Register(jobs.HandlerFunc{JobType: jobs.TypeInferEdges, Fn: func(_ context.Context, job jobs.Job) (*jobs.InferenceResult, error) {
		return &jobs.InferenceResult{AnchorID: job.Payload.AnchorID, EdgesCreated: 1}, nil
	}}))
	cons := NewConsumer(rdb, name, reg, logger.NewNop(), ConsumerOptions{Concurrency: 1, PollTimeout: 200 * time.Millisecond})

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- cons.Run(runCtx) }()

	require.Eventually(t, func() bool {
		info, err = q.Status(ctx, id)
		return err == nil && info.Status.Terminal()
	}, 10*time.Second, 50*time.Millisecond)
	stop()
	require.NoError(t, <-done)

	assert.Equal(t, jobs.StatusFinished, info.Status)
	require.NotNil(t, info.Result)
	assert.Equal(t, "p1", info.Result.AnchorID)
	assert.Equal(t, 1, info.Result.EdgesCreated)
}

func TestProcessDrainsAfterShutdown(t *testing.T) {
	if os.Getenv("REDIS_INTEGRATION") != "1" {
		t.Skip("set REDIS_INTEGRATION=1 to run against a live Redis")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb, err := redisdb.NewClient(ctx, logger.NewNop(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer rdb.Close()

	name := "adjacent_test_" + uuid.NewString()[:8]
	defer rdb.Del(context.Background(), name)
	q, err := NewQueue(rdb, name, time.Minute)
	require.NoError(t, err)
	id, err := q.Enqueue(ctx, jobs.NewInferencePayload("p1", []string{"p2"}, "t"), 10*time.Second)
	require.NoError(t, err)
	defer rdb.Del(context.Background(), jobKey(id))

	var handlerErr error
	reg := jobs.NewRegistry()
	require.NoError(t, reg.Register(jobs.HandlerFunc{JobType: jobs.TypeInferEdges, Fn: func(jctx context.Context, job jobs.Job) (*jobs.InferenceResult, error) {
		handlerErr = jctx.Err()
		return &jobs.InferenceResult{AnchorID: job.Payload.AnchorID, EdgesReinforced: 1}, nil
	}}))
	cons := NewConsumer(rdb, name, reg, logger.NewNop(), ConsumerOptions{Concurrency: 1})

	// The id was popped just before shutdown.
	shutdown, stop := context.WithCancel(ctx)
	stop()
	cons.Process(shutdown, id)

	assert.NoError(t, handlerErr)
	info, err := q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFinished, info.Status)
	require.NotNil(t, info.Result)
	assert.Equal(t, 1, info.Result.EdgesReinforced)
}
