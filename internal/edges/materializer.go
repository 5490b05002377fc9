package edges

import (
	"maps"
	"slices"
	"time"

	"github.com/abdelatifsd/Adjacent/internal/domain"
)

// Outcome records what a single materialization did to the stored edge.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	// OutcomeReinforced means the anchor was new to anchors_seen.
	OutcomeReinforced Outcome = "reinforced"
	// OutcomeNoopExisting means the same anchor re-observed a stored edge.
	OutcomeNoopExisting Outcome = "noop_existing"
)

// Provenance is stamped on an edge only when it is first created.
type Provenance struct {
	Kind  domain.CreatedKind
	JobID string
}

// Materializer merges inferred edges into stored ones under the anchor-count
// confidence rule.
type Materializer struct {
	Now        func() time.Time
	Confidence ConfidenceParams
}

// NewMaterializer uses the UTC wall clock and DefaultConfidence.
func NewMaterializer() *Materializer {
	return &Materializer{
		Now:        func() time.Time { return time.Now().UTC() },
		Confidence: DefaultConfidence,
	}
}

// KindFor classifies a pair relative to the anchor that produced it.
func KindFor(from, to, anchorID string) domain.CreatedKind {
	if from == anchorID || to == anchorID {
		return domain.CreatedKindAnchorCandidate
	}
	return domain.CreatedKindCandidateCandidate
}

// Materialize merges a patch with the stored edge (nil when absent) and returns
// the next durable state. The result depends only on its inputs and the clock.
func (m *Materializer) Materialize(patch domain.EdgePatch, anchorID string, existing *domain.Edge, prov Provenance) (domain.Edge, Outcome) {
	a, b := CanonicalPair(patch.FromID, patch.ToID)
	now := m.Now()

	var (
		anchors   []string
		createdAt time.Time
		outcome   Outcome
	)
	if existing == nil {
		anchors = []string{anchorID}
		createdAt = now
		outcome = OutcomeCreated
	} else {
		anchors = slices.Clone(existing.AnchorsSeen)
		createdAt = existing.CreatedAt
		outcome = OutcomeNoopExisting
		if !slices.Contains(anchors, anchorID) {
			anchors = append(anchors, anchorID)
			outcome = OutcomeReinforced
		}
	}

	confidence := m.Confidence.FromAnchors(len(anchors))
	props := maps.Clone(patch.EdgeProps)
	if props == nil {
		props = map[string]any{}
	}

	edge := domain.Edge{
		EdgeID:           ComputeEdgeID(patch.EdgeType, a, b),
		EdgeType:         patch.EdgeType,
		FromID:           a,
		ToID:             b,
		AnchorsSeen:      anchors,
		Confidence:       confidence,
		Status:           StatusFor(confidence),
		CreatedAt:        createdAt,
		LastReinforcedAt: now,
		Notes:            patch.Notes,
		EdgeProps:        props,
	}

	if existing == nil {
		edge.CreatedKind = prov.Kind
		if edge.CreatedKind == "" {
			edge.CreatedKind = KindFor(a, b, anchorID)
		}
		edge.CreatedUnderAnchorID = anchorID
		edge.CreatedInJobID = prov.JobID
	} else {
		edge.CreatedKind = existing.CreatedKind
		edge.CreatedUnderAnchorID = existing.CreatedUnderAnchorID
		edge.CreatedInJobID = existing.CreatedInJobID
	}
	return edge, outcome
}
