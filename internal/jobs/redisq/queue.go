// Package redisq is the default job queue: a Redis list of job ids plus one
// hash per job holding payload, status and result.
package redisq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/redisdb"
)

type Queue struct {
	rdb       goredis.UniversalClient
	name      string
	resultTTL time.Duration
	now       func() time.Time
}

var _ jobs.Queue = (*Queue)(nil)

func NewQueue(rdb goredis.UniversalClient, name string, resultTTL time.Duration) (*Queue, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if name == "" {
		return nil, fmt.Errorf("queue name required")
	}
	if resultTTL <= 0 {
		resultTTL = 24 * time.Hour
	}
	return &Queue{rdb: rdb, name: name, resultTTL: resultTTL, now: time.Now}, nil
}

func (q *Queue) Name() string { return q.name }

// Enqueue writes the job hash and pushes its id in one MULTI block.
func (q *Queue) Enqueue(ctx context.Context, payload jobs.InferencePayload, timeout time.Duration) (string, error) {
	const op = "redisq.enqueue"
	if err := payload.Validate(); err != nil {
		return "", errkind.InvalidInput(op, err.Error())
	}
	id := uuid.NewString()
	fields, err := newRecord(id, payload, timeout).fields(q.now())
	if err != nil {
		return "", errkind.Internal(op, err)
	}
	key := jobKey(id)
	_, err = q.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, key, fields)
		p.Expire(ctx, key, q.resultTTL)
		p.LPush(ctx, q.name, id)
		return nil
	})
	if err != nil {
		return "", redisdb.Classify(op, err)
	}
	return id, nil
}

func (q *Queue) Status(ctx context.Context, jobID string) (jobs.JobInfo, error) {
	const op = "redisq.status"
	h, err := q.rdb.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return jobs.JobInfo{}, redisdb.Classify(op, err)
	}
	if len(h) == 0 {
		return jobs.JobInfo{JobID: jobID, Status: jobs.StatusNotFound}, nil
	}
	rec, err := parseRecord(h)
	if err != nil {
		return jobs.JobInfo{}, errkind.Internal(op, err)
	}
	if rec.ID == "" {
		rec.ID = jobID
	}
	return rec.info(), nil
}

// Pending is the number of jobs waiting on the list.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, redisdb.Classify("redisq.pending", err)
	}
	return n, nil
}
