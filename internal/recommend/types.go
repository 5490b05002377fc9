package recommend

import (
	"context"

	"github.com/abdelatifsd/Adjacent/internal/domain"
)

type ProductReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	IncrementQueryCount(ctx context.Context, id string) error
}

type NeighborReader interface {
	GetNeighbors(ctx context.Context, anchorID string, q domain.NeighborQuery) ([]domain.Neighbor, error)
	EdgeChecker
}

// EdgeChecker is the part of the graph the candidate filter needs.
type EdgeChecker interface {
	GetAnchorEdges(ctx context.Context, anchorID string, candidateIDs []string) (map[string]struct{}, error)
	GetAnchorEdgesWithMetadata(ctx context.Context, anchorID string, candidateIDs []string) (map[string]domain.EdgeSummary, error)
}

type VectorSearcher interface {
	SimilaritySearch(ctx context.Context, embedding []float32, topK int) ([]domain.ScoredProduct, error)
}

type Source string

const (
	SourceGraph  Source = "graph"
	SourceVector Source = "vector"
)

type InferenceStatus string

const (
	InferenceComplete InferenceStatus = "complete"
	InferenceEnqueued InferenceStatus = "enqueued"
	InferenceSkipped  InferenceStatus = "skipped"
)

type Request struct {
	AnchorID      string
	TopK          int
	SkipInference bool
	TraceID       string
}

// Recommendation serializes absent fields as null.
type Recommendation struct {
	ProductID  string   `json:"product_id"`
	EdgeType   *string  `json:"edge_type"`
	Confidence *float64 `json:"confidence"`
	Source     Source   `json:"source"`
	Score      *float64 `json:"score"`
}

type QueryResult struct {
	AnchorID        string           `json:"anchor_id"`
	Recommendations []Recommendation `json:"recommendations"`
	FromGraph       int              `json:"from_graph"`
	FromVector      int              `json:"from_vector"`
	InferenceStatus InferenceStatus  `json:"inference_status"`
	JobID           *string          `json:"job_id"`
	TraceID         string           `json:"trace_id"`
}
