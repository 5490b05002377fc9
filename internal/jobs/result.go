package jobs

import (
	"github.com/abdelatifsd/Adjacent/internal/llm"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

// InferenceResult is what a finished job reports. Failures are carried in
// ErrorType and Error rather than returned to the queue.
type InferenceResult struct {
	AnchorID              string        `json:"anchor_id"`
	EdgesCreated          int           `json:"edges_created"`
	EdgesReinforced       int           `json:"edges_reinforced"`
	EdgesNoopExisting     int           `json:"edges_noop_existing"`
	AnchorEdgesCreated    int           `json:"anchor_edges_created"`
	CandidateEdgesCreated int           `json:"candidate_edges_created"`
	PatchesReceived       int           `json:"patches_received"`
	PatchesDropped        int           `json:"patches_dropped"`
	CandidatesResolved    int           `json:"candidates_resolved"`
	ErrorType             string        `json:"error_type,omitempty"`
	Error                 string        `json:"error,omitempty"`
	LLM                   *llm.Metadata `json:"llm,omitempty"`
}

func (r *InferenceResult) Failed() bool {
	return r != nil && r.ErrorType != ""
}

// FailedResult builds the zero-count result reported for a failed job.
func FailedResult(anchorID string, err error) *InferenceResult {
	return &InferenceResult{
		AnchorID:  anchorID,
		ErrorType: ErrorType(err),
		Error:     err.Error(),
	}
}

// ErrorType names an error for job results and API bodies.
func ErrorType(err error) string {
	switch errkind.KindOf(err) {
	case errkind.KindNotFound:
		return "product_not_found"
	case errkind.KindInvalidInput:
		return "invalid_input"
	case errkind.KindUnavailable:
		return "service_unavailable"
	case errkind.KindSchemaViolation:
		return "schema_violation"
	default:
		return "internal_error"
	}
}
