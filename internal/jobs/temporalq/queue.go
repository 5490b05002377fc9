package temporalq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

type Queue struct {
	tc        temporalsdkclient.Client
	taskQueue string
}

var _ jobs.Queue = (*Queue)(nil)

func NewQueue(tc temporalsdkclient.Client, taskQueue string) (*Queue, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if taskQueue == "" {
		return nil, fmt.Errorf("temporal task queue required")
	}
	return &Queue{tc: tc, taskQueue: taskQueue}, nil
}

// Enqueue starts a workflow whose id is the job id.
func (q *Queue) Enqueue(ctx context.Context, payload jobs.InferencePayload, timeout time.Duration) (string, error) {
	const op = "temporalq.enqueue"
	if err := payload.Validate(); err != nil {
		return "", errkind.InvalidInput(op, err.Error())
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	id := "infer-edges-" + uuid.NewString()
	run, err := q.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       id,
		TaskQueue:                q.taskQueue,
		WorkflowExecutionTimeout: timeout + time.Minute,
	}, WorkflowName, WorkflowInput{JobID: id, Payload: payload, TimeoutSeconds: timeout.Seconds()})
	if err != nil {
		return "", errkind.Unavailable(op, err)
	}
	return run.GetID(), nil
}

func (q *Queue) Status(ctx context.Context, jobID string) (jobs.JobInfo, error) {
	const op = "temporalq.status"
	info := jobs.JobInfo{JobID: jobID}
	desc, err := q.tc.DescribeWorkflowExecution(ctx, jobID, "")
	if err != nil {
		var nf *serviceerror.NotFound
		if errors.As(err, &nf) {
			info.Status = jobs.StatusNotFound
			return info, nil
		}
		return info, errkind.Unavailable(op, err)
	}
	info.Status = statusOf(desc)
	switch info.Status {
	case jobs.StatusFinished:
		var res jobs.InferenceResult
		if err := q.tc.GetWorkflow(ctx, jobID, "").Get(ctx, &res); err != nil {
			return info, errkind.Internal(op, err)
		}
		info.Result = &res
	case jobs.StatusFailed:
		if err := q.tc.GetWorkflow(ctx, jobID, "").Get(ctx, nil); err != nil {
			info.Error = err.Error()
		} else {
			info.Error = desc.GetWorkflowExecutionInfo().GetStatus().String()
		}
	}
	return info, nil
}

// statusOf collapses Temporal's execution states onto job states. A running
// workflow whose activity has not been picked up is still queued.
func statusOf(desc *workflowservice.DescribeWorkflowExecutionResponse) jobs.Status {
	switch desc.GetWorkflowExecutionInfo().GetStatus() {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		for _, pa := range desc.GetPendingActivities() {
			if pa.GetState() == enumspb.PENDING_ACTIVITY_STATE_STARTED {
				return jobs.StatusRunning
			}
		}
		return jobs.StatusQueued
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return jobs.StatusFinished
	case enumspb.WORKFLOW_EXECUTION_STATUS_UNSPECIFIED:
		return jobs.StatusNotFound
	default:
		return jobs.StatusFailed
	}
}
