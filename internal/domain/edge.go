package domain

import "time"

type EdgeStatus string

const (
	EdgeStatusProposed EdgeStatus = "PROPOSED"
	EdgeStatusActive   EdgeStatus = "ACTIVE"
)

type CreatedKind string

const (
	CreatedKindAnchorCandidate    CreatedKind = "anchor_candidate"
	CreatedKindCandidateCandidate CreatedKind = "candidate_candidate"
)

// Edge is a durable recommendation relationship. FromID <= ToID always holds.
type Edge struct {
	EdgeID           string         `json:"edge_id"`
	EdgeType         string         `json:"edge_type"`
	FromID           string         `json:"from_id"`
	ToID             string         `json:"to_id"`
	AnchorsSeen      []string       `json:"anchors_seen"`
	Confidence       float64        `json:"confidence_0_to_1"`
	Status           EdgeStatus     `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	LastReinforcedAt time.Time      `json:"last_reinforced_at"`
	Notes            *string        `json:"notes"`
	EdgeProps        map[string]any `json:"edge_props"`

	// Provenance, written once at creation.
	CreatedKind          CreatedKind `json:"created_kind,omitempty"`
	CreatedUnderAnchorID string      `json:"created_under_anchor_id,omitempty"`
	CreatedInJobID       string      `json:"created_in_job_id,omitempty"`
}

// EdgePatch is an edge proposed by the inference model, not yet merged with stored state.
type EdgePatch struct {
	EdgeType  string         `json:"edge_type"`
	FromID    string         `json:"from_id"`
	ToID      string         `json:"to_id"`
	Notes     *string        `json:"notes,omitempty"`
	EdgeProps map[string]any `json:"edge_props,omitempty"`
}

// EdgeSummary aggregates every relationship between an anchor and one candidate.
type EdgeSummary struct {
	MaxAnchorCount int
	MaxConfidence  float64
}

// Neighbor is the best edge from an anchor to one candidate.
type Neighbor struct {
	CandidateID string
	Edge        Edge
}

// NeighborQuery bounds a neighbor lookup. Nil filters are not applied.
type NeighborQuery struct {
	Limit         int
	EdgeType      *string
	MinConfidence *float64
}
