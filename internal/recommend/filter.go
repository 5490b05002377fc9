package recommend

import (
	"context"

	"github.com/abdelatifsd/Adjacent/internal/config"
)

// Gate decides whether a candidate that already has an edge to the anchor
// may be offered to inference again.
type Gate struct {
	Enabled       bool
	Threshold     int
	MaxConfidence float64
}

func GateFromConfig(cfg config.RecommendConfig) Gate {
	return Gate{
		Enabled:       cfg.AllowEndpointReinforcement,
		Threshold:     cfg.ReinforcementThreshold,
		MaxConfidence: cfg.ReinforcementMaxConfidence,
	}
}

type CandidateFilter struct {
	edges EdgeChecker
	gate  Gate
}

func NewCandidateFilter(edges EdgeChecker, gate Gate) *CandidateFilter {
	return &CandidateFilter{edges: edges, gate: gate}
}

// Select returns the candidates that still need inference, in input order.
func (f *CandidateFilter) Select(ctx context.Context, anchorID string, candidateIDs []string) ([]string, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	if !f.gate.Enabled {
		connected, err := f.edges.GetAnchorEdges(ctx, anchorID, candidateIDs)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, id := range candidateIDs {
			if _, ok := connected[id]; !ok {
				out = append(out, id)
			}
		}
		return out, nil
	}

	summaries, err := f.edges.GetAnchorEdgesWithMetadata(ctx, anchorID, candidateIDs)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range candidateIDs {
		s, ok := summaries[id]
		if !ok || (s.MaxAnchorCount < f.gate.Threshold && s.MaxConfidence < f.gate.MaxConfidence) {
			out = append(out, id)
		}
	}
	return out, nil
}
