// Package jobs defines the contract between the query path and the inference
// worker: a versioned payload in, a structured result out, and the queue
// that carries them.
package jobs

import (
	"fmt"
	"strings"
	"time"
)

const (
	TypeInferEdges = "infer_edges"

	PayloadVersion = 1
)

// InferencePayload carries no credentials; workers read their own configuration.
type InferencePayload struct {
	Version        int       `json:"version"`
	AnchorID       string    `json:"anchor_id"`
	CandidateIDs   []string  `json:"candidate_ids"`
	TraceID        string    `json:"trace_id,omitempty"`
	LLMModel       string    `json:"llm_model,omitempty"`
	SystemPromptID string    `json:"system_prompt_id,omitempty"`
	UserPromptID   string    `json:"user_prompt_id,omitempty"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

func NewInferencePayload(anchorID string, candidateIDs []string, traceID string) InferencePayload {
	ids := make([]string, len(candidateIDs))
	copy(ids, candidateIDs)
	return InferencePayload{
		Version:      PayloadVersion,
		AnchorID:     anchorID,
		CandidateIDs: ids,
		TraceID:      traceID,
		EnqueuedAt:   time.Now().UTC(),
	}
}

func (p InferencePayload) Validate() error {
	if p.Version != PayloadVersion {
		return fmt.Errorf("unsupported payload version %d", p.Version)
	}
	if strings.TrimSpace(p.AnchorID) == "" {
		return fmt.Errorf("payload missing anchor_id")
	}
	if len(p.CandidateIDs) == 0 {
		return fmt.Errorf("payload has no candidate_ids")
	}
	return nil
}

// Job is one dequeued unit of work.
type Job struct {
	ID      string
	Type    string
	Payload InferencePayload
}
