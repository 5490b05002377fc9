// Package recommend answers recommendation queries from the graph, falls back
// to vector similarity, and schedules inference for the gaps without waiting.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/embedding"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/observability"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

const opQuery = "query"

type Options struct {
	Gate        Gate
	DefaultTopK int
	MaxTopK     int
	JobTimeout  time.Duration

	// Recorded on each payload for traceability.
	LLMModel       string
	SystemPromptID string
	UserPromptID   string
}

type Deps struct {
	Products  ProductReader
	Neighbors NeighborReader
	Vectors   VectorSearcher
	// Embedder is used only for anchors without a stored embedding.
	Embedder embedding.Provider
	// Queue is nil when inference is not configured.
	Queue jobs.Queue
	Sink  observability.Sink
	Log   *logger.Logger
}

type Orchestrator struct {
	products  ProductReader
	neighbors NeighborReader
	vectors   VectorSearcher
	embedder  embedding.Provider
	queue     jobs.Queue
	filter    *CandidateFilter
	sink      observability.Sink
	log       *logger.Logger
	opts      Options
}

func NewOrchestrator(d Deps, opts Options) (*Orchestrator, error) {
	if d.Products == nil || d.Neighbors == nil || d.Vectors == nil {
		return nil, fmt.Errorf("recommend: products, neighbors and vectors are required")
	}
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = 100
	}
	if opts.DefaultTopK <= 0 || opts.DefaultTopK > opts.MaxTopK {
		opts.DefaultTopK = min(10, opts.MaxTopK)
	}
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		products:  d.Products,
		neighbors: d.Neighbors,
		vectors:   d.Vectors,
		embedder:  d.Embedder,
		queue:     d.Queue,
		filter:    NewCandidateFilter(d.Neighbors, opts.Gate),
		sink:      observability.OrNop(d.Sink),
		log:       log.With("component", "QueryOrchestrator"),
		opts:      opts,
	}, nil
}

func (o *Orchestrator) MaxTopK() int { return o.opts.MaxTopK }

// InferenceEnabled reports whether queries can schedule enrichment.
func (o *Orchestrator) InferenceEnabled() bool { return o.queue != nil }

// Query never waits for inference. A zero TopK means the default.
func (o *Orchestrator) Query(ctx context.Context, req Request) (*QueryResult, error) {
	if req.TraceID == "" {
		req.TraceID = uuid.NewString()
	}
	if req.TopK == 0 {
		req.TopK = o.opts.DefaultTopK
	}
	anchorID := strings.TrimSpace(req.AnchorID)
	if anchorID == "" {
		return nil, errkind.InvalidInput("recommend.query", "anchor id is required")
	}
	if req.TopK < 1 || req.TopK > o.opts.MaxTopK {
		return nil, errkind.InvalidInput("recommend.query", fmt.Sprintf("top_k must be between 1 and %d", o.opts.MaxTopK))
	}
	req.AnchorID = anchorID

	total := observability.StartSpan(ctx, o.sink, "query_total", opQuery, req.TraceID, "product_id", anchorID)
	res, err := o.query(ctx, req)
	if res != nil {
		total.SetCount("from_graph", res.FromGraph)
		total.SetCount("from_vector", res.FromVector)
	}
	total.End(err)

	observability.Count(ctx, o.sink, "top_k", opQuery, req.TraceID, float64(req.TopK))
	skip := 0.0
	if req.SkipInference {
		skip = 1
	}
	observability.Count(ctx, o.sink, "skip_inference", opQuery, req.TraceID, skip)
	return res, err
}

func (o *Orchestrator) query(ctx context.Context, req Request) (*QueryResult, error) {
	log := o.log.With("anchor_id", req.AnchorID, "trace_id", req.TraceID)

	span := observability.StartSpan(ctx, o.sink, "fetch_anchor", opQuery, req.TraceID)
	anchor, err := o.products.GetProduct(ctx, req.AnchorID)
	span.End(err)
	if err != nil {
		return nil, err
	}

	span = observability.StartSpan(ctx, o.sink, "increment_query_count", opQuery, req.TraceID)
	err = o.products.IncrementQueryCount(ctx, req.AnchorID)
	span.End(err)
	if err != nil {
		log.Warn("increment query count failed", "error", err)
	}

	res := &QueryResult{
		AnchorID:        req.AnchorID,
		Recommendations: []Recommendation{},
		InferenceStatus: InferenceComplete,
		TraceID:         req.TraceID,
	}
	seen := map[string]struct{}{req.AnchorID: {}}

	span = observability.StartSpan(ctx, o.sink, "graph_neighbors", opQuery, req.TraceID)
	neighbors, err := o.neighbors.GetNeighbors(ctx, req.AnchorID, domain.NeighborQuery{Limit: req.TopK})
	if err == nil {
		for _, n := range neighbors {
			if _, dup := seen[n.CandidateID]; dup || len(res.Recommendations) >= req.TopK {
				continue
			}
			seen[n.CandidateID] = struct{}{}
			edgeType, conf := n.Edge.EdgeType, n.Edge.Confidence
			res.Recommendations = append(res.Recommendations, Recommendation{
				ProductID:  n.CandidateID,
				EdgeType:   &edgeType,
				Confidence: &conf,
				Source:     SourceGraph,
			})
		}
		res.FromGraph = len(res.Recommendations)
		span.SetCount("from_graph", res.FromGraph)
	}
	span.End(err)
	if err != nil {
		return nil, err
	}

	var vectorIDs []string
	if need := req.TopK - res.FromGraph; need > 0 {
		span = observability.StartSpan(ctx, o.sink, "vector_search", opQuery, req.TraceID)
		vectorIDs, err = o.vectorFallback(ctx, anchor, req.TopK, res, seen)
		span.SetCount("from_vector", len(vectorIDs))
		span.End(err)
		if err != nil {
			return nil, err
		}
		res.FromVector = len(vectorIDs)
	}

	if req.SkipInference || o.queue == nil {
		res.InferenceStatus = InferenceSkipped
		return res, nil
	}
	if len(vectorIDs) == 0 {
		return res, nil
	}

	span = observability.StartSpan(ctx, o.sink, "enqueue_inference", opQuery, req.TraceID)
	jobID, enqueued, err := o.schedule(ctx, req, vectorIDs)
	span.SetCount("candidates_enqueued", enqueued)
	span.End(err)
	if err != nil {
		return nil, err
	}
	if jobID != "" {
		res.InferenceStatus = InferenceEnqueued
		res.JobID = &jobID
		observability.Count(ctx, o.sink, "candidates_enqueued", opQuery, req.TraceID, float64(enqueued))
		log.Info("inference enqueued", "job_id", jobID, "candidates", enqueued)
	}
	return res, nil
}

// vectorFallback appends vector hits to res until TopK is reached and
// returns the ids it added.
func (o *Orchestrator) vectorFallback(ctx context.Context, anchor *domain.Product, topK int, res *QueryResult, seen map[string]struct{}) ([]string, error) {
	emb, err := o.anchorEmbedding(ctx, anchor)
	if err != nil {
		return nil, err
	}
	hits, err := o.vectors.SimilaritySearch(ctx, emb, topK+res.FromGraph+1)
	if err != nil {
		return nil, err
	}
	var added []string
	for _, h := range hits {
		if len(res.Recommendations) >= topK {
			break
		}
		id := h.Product.ID
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		score := h.Score
		res.Recommendations = append(res.Recommendations, Recommendation{
			ProductID: id,
			Source:    SourceVector,
			Score:     &score,
		})
		added = append(added, id)
	}
	return added, nil
}

func (o *Orchestrator) anchorEmbedding(ctx context.Context, anchor *domain.Product) ([]float32, error) {
	if len(anchor.Embedding) > 0 {
		return anchor.Embedding, nil
	}
	if strings.TrimSpace(anchor.Description) == "" {
		return nil, errkind.InvalidInput("recommend.embedding", "missing embedding input: product "+anchor.ID+" has no description")
	}
	if o.embedder == nil {
		return nil, errkind.Unavailable("recommend.embedding", errors.New("no embedding provider configured"))
	}
	return o.embedder.Embed(ctx, anchor.Description)
}

func (o *Orchestrator) schedule(ctx context.Context, req Request, candidates []string) (string, int, error) {
	selected, err := o.filter.Select(ctx, req.AnchorID, candidates)
	if err != nil {
		return "", 0, err
	}
	if len(selected) == 0 {
		return "", 0, nil
	}
	payload := jobs.NewInferencePayload(req.AnchorID, selected, req.TraceID)
	payload.LLMModel = o.opts.LLMModel
	payload.SystemPromptID = o.opts.SystemPromptID
	payload.UserPromptID = o.opts.UserPromptID

	jobID, err := o.queue.Enqueue(ctx, payload, o.opts.JobTimeout)
	if err != nil {
		return "", 0, err
	}
	return jobID, len(selected), nil
}

// JobStatus looks up a scheduled job. Without a queue every id is unknown.
func (o *Orchestrator) JobStatus(ctx context.Context, jobID string) (jobs.JobInfo, error) {
	if o.queue == nil {
		return jobs.JobInfo{JobID: jobID, Status: jobs.StatusNotFound}, nil
	}
	return o.queue.Status(ctx, jobID)
}
