package temporalq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
	"github.com/abdelatifsd/Adjacent/internal/temporalx"
)

// Runner hosts the workflow and activity on the task queue.
type Runner struct {
	log         *logger.Logger
	tc          temporalsdkclient.Client
	cfg         config.TemporalConfig
	registry    *jobs.Registry
	concurrency int
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg config.TemporalConfig, registry *jobs.Registry, concurrency int) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if registry == nil {
		return nil, fmt.Errorf("temporal worker missing registry")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		log:         log.With("component", "TemporalWorker"),
		tc:          tc,
		cfg:         cfg,
		registry:    registry,
		concurrency: concurrency,
	}, nil
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.concurrency,
	})
	acts := &Activities{Registry: r.registry}
	w.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(acts.InferEdges, activity.RegisterOptions{Name: ActivityInferEdges})
	return w
}

// Run starts polling, retrying startup until DialMaxWait, and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("starting temporal worker", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue, "concurrency", r.concurrency)

	maxWait := r.cfg.DialMaxWait.Duration
	deadline := time.Now().Add(maxWait)
	var w worker.Worker
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		w = r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			r.log.Info("temporal worker started", "attempts", attempt)
			break
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if maxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
		}
	}

	<-ctx.Done()
	w.Stop()
	r.log.Info("temporal worker stopped")
	return nil
}
