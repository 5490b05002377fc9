// Package temporalq runs inference jobs as Temporal workflows: one workflow
// per job wrapping a single non-retried activity.
package temporalq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/abdelatifsd/Adjacent/internal/jobs"
)

const (
	WorkflowName       = "infer_edges"
	ActivityInferEdges = "infer_edges_activity"

	defaultJobTimeout = 300 * time.Second
)

type WorkflowInput struct {
	JobID          string                `json:"job_id"`
	Payload        jobs.InferencePayload `json:"payload"`
	TimeoutSeconds float64               `json:"timeout_seconds"`
}

func (in WorkflowInput) timeout() time.Duration {
	if in.TimeoutSeconds <= 0 {
		return defaultJobTimeout
	}
	return time.Duration(in.TimeoutSeconds * float64(time.Second))
}

// Workflow never retries: a failed attempt may already have written edges.
func Workflow(ctx workflow.Context, in WorkflowInput) (*jobs.InferenceResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: in.timeout(),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	var out jobs.InferenceResult
	if err := workflow.ExecuteActivity(ctx, ActivityInferEdges, in).Get(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type Activities struct {
	Registry *jobs.Registry
}

func (a *Activities) InferEdges(ctx context.Context, in WorkflowInput) (*jobs.InferenceResult, error) {
	if a == nil || a.Registry == nil {
		return nil, fmt.Errorf("temporalq: activity not configured")
	}
	jobID := strings.TrimSpace(in.JobID)
	if jobID == "" {
		jobID = activity.GetInfo(ctx).WorkflowExecution.ID
	}
	// A timeout surfaces as an activity error so the workflow ends failed.
	return a.Registry.DispatchWithTimeout(ctx, jobs.Job{ID: jobID, Type: jobs.TypeInferEdges, Payload: in.Payload}, in.timeout())
}
