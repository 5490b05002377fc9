package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type Handler interface {
	Type() string
	Handle(ctx context.Context, job Job) (*InferenceResult, error)
}

// HandlerFunc adapts a function to Handler for a fixed job type.
type HandlerFunc struct {
	JobType string
	Fn      func(ctx context.Context, job Job) (*InferenceResult, error)
}

func (h HandlerFunc) Type() string { return h.JobType }

func (h HandlerFunc) Handle(ctx context.Context, job Job) (*InferenceResult, error) {
	return h.Fn(ctx, job)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Dispatch runs the handler for job.Type. A missing handler or a panic is
// returned as an error, never propagated.
func (r *Registry) Dispatch(ctx context.Context, job Job) (res *InferenceResult, err error) {
	h, ok := r.Get(job.Type)
	if !ok {
		return nil, &MissingHandlerError{JobType: job.Type}
	}
	defer func() {
		if v := recover(); v != nil {
			res = nil
			err = &PanicError{Val: v}
		}
	}()
	return h.Handle(ctx, job)
}

// DispatchWithTimeout runs job under its own deadline. When the deadline
// expires the job is reported as a *TimeoutError alongside whatever partial
// result the handler returned; cancellation of ctx is not a timeout.
func (r *Registry) DispatchWithTimeout(ctx context.Context, job Job, timeout time.Duration) (*InferenceResult, error) {
	if timeout <= 0 {
		return r.Dispatch(ctx, job)
	}
	jctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := r.Dispatch(jctx, job)
	if errors.Is(jctx.Err(), context.DeadlineExceeded) && !errors.Is(ctx.Err(), context.Canceled) {
		return res, &TimeoutError{Timeout: timeout}
	}
	return res, err
}

type TimeoutError struct{ Timeout time.Duration }

func (e *TimeoutError) Error() string { return fmt.Sprintf("job timed out after %s", e.Timeout) }

type MissingHandlerError struct{ JobType string }

func (e *MissingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

type PanicError struct{ Val any }

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
