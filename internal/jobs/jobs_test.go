package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

func TestPayloadValidate(t *testing.T) {
	p := NewInferencePayload("p1", []string{"p2", "p3"}, "t-1")
	require.NoError(t, p.Validate())
	assert.Equal(t, PayloadVersion, p.Version)
	assert.False(t, p.EnqueuedAt.IsZero())

	bad := p
	bad.Version = 2
	assert.Error(t, bad.Validate())

	bad = p
	bad.AnchorID = "  "
	assert.Error(t, bad.Validate())

	bad = p
	bad.CandidateIDs = nil
	assert.Error(t, bad.Validate())
}

func TestPayloadCopiesCandidates(t *testing.T) {
	ids := []string{"a", "b"}
	p := NewInferencePayload("x", ids, "")
	ids[0] = "z"
	assert.Equal(t, []string{"a", "b"}, p.CandidateIDs)
}

func TestPayloadJSONHasNoSecrets(t *testing.T) {
	raw, err := json.Marshal(NewInferencePayload("p1", []string{"p2"}, "t"))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for k := range m {
		assert.NotContains(t, k, "key")
		assert.NotContains(t, k, "password")
	}
	assert.EqualValues(t, 1, m["version"])
}

func TestFailedResultErrorTypes(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errkind.NotFound("op", "gone"), "product_not_found"},
		{errkind.InvalidInput("op", "bad"), "invalid_input"},
		{errkind.Unavailable("op", errors.New("down")), "service_unavailable"},
		{errkind.SchemaViolation("op", "shape", nil), "schema_violation"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tc := range cases {
		r := FailedResult("p1", tc.err)
		assert.Equal(t, tc.want, r.ErrorType)
		assert.True(t, r.Failed())
		assert.Zero(t, r.EdgesCreated)
		assert.Equal(t, "p1", r.AnchorID)
	}
	assert.False(t, (&InferenceResult{}).Failed())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusFinished.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusNotFound.Terminal())
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(HandlerFunc{JobType: TypeInferEdges, Fn: func(_ context.Context, job Job) (*InferenceResult, error) {
		return &InferenceResult{AnchorID: job.Payload.AnchorID}, nil
	}}))
	assert.Error(t, r.Register(HandlerFunc{JobType: TypeInferEdges}))
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(HandlerFunc{}))

	res, err := r.Dispatch(context.Background(), Job{ID: "j1", Type: TypeInferEdges, Payload: InferencePayload{AnchorID: "p1"}})
	require.NoError(t, err)
	assert.Equal(t, "p1", res.AnchorID)

	_, err = r.Dispatch(context.Background(), Job{Type: "unknown"})
	var missing *MissingHandlerError
	assert.ErrorAs(t, err, &missing)
}

func TestRegistryRecoversPanic(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(HandlerFunc{JobType: "boom", Fn: func(context.Context, Job) (*InferenceResult, error) {
		panic("kaboom")
	}}))
	res, err := r.Dispatch(context.Background(), Job{Type: "boom"})
	assert.Nil(t, res)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "kaboom")
}

func blockingRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(HandlerFunc{JobType: TypeInferEdges, Fn: func(ctx context.Context, job Job) (*InferenceResult, error) {
		<-ctx.Done()
		res := FailedResult(job.Payload.AnchorID, errkind.Unavailable("test.block", ctx.Err()))
		res.EdgesCreated = 1
		return res, nil
	}}))
	return r
}

func TestDispatchWithTimeoutReportsTimeout(t *testing.T) {
	r := blockingRegistry(t)
	res, err := r.DispatchWithTimeout(context.Background(), Job{Type: TypeInferEdges, Payload: InferencePayload{AnchorID: "p1"}}, 20*time.Millisecond)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 20*time.Millisecond, te.Timeout)
	assert.Equal(t, "job timed out after 20ms", err.Error())
	require.NotNil(t, res)
	assert.Equal(t, 1, res.EdgesCreated)
}

func TestDispatchWithTimeoutCancellationIsNotTimeout(t *testing.T) {
	r := blockingRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.DispatchWithTimeout(ctx, Job{Type: TypeInferEdges, Payload: InferencePayload{AnchorID: "p1"}}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "service_unavailable", res.ErrorType)

	ok := NewRegistry()
	require.NoError(t, ok.Register(HandlerFunc{JobType: TypeInferEdges, Fn: func(context.Context, Job) (*InferenceResult, error) {
		return &InferenceResult{EdgesCreated: 2}, nil
	}}))
	res, err = ok.DispatchWithTimeout(context.Background(), Job{Type: TypeInferEdges}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, res.EdgesCreated)
}
