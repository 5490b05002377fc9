package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

type fakeProducts struct {
	products     map[string]domain.Product
	incremented  []string
	incrementErr error
}

func (f *fakeProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, errkind.NotFound("fake.get_product", "product not found: "+id)
	}
	return &p, nil
}

func (f *fakeProducts) IncrementQueryCount(_ context.Context, id string) error {
	f.incremented = append(f.incremented, id)
	return f.incrementErr
}

type fakeGraph struct {
	neighbors []domain.Neighbor
	summaries map[string]domain.EdgeSummary
	lastLimit int
	metaCalls int
	flatCalls int
}

func (f *fakeGraph) GetNeighbors(_ context.Context, _ string, q domain.NeighborQuery) ([]domain.Neighbor, error) {
	f.lastLimit = q.Limit
	if len(f.neighbors) > q.Limit {
		return f.neighbors[:q.Limit], nil
	}
	return f.neighbors, nil
}

func (f *fakeGraph) GetAnchorEdges(_ context.Context, _ string, ids []string) (map[string]struct{}, error) {
	f.flatCalls++
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := f.summaries[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeGraph) GetAnchorEdgesWithMetadata(_ context.Context, _ string, ids []string) (map[string]domain.EdgeSummary, error) {
	f.metaCalls++
	out := map[string]domain.EdgeSummary{}
	for _, id := range ids {
		if s, ok := f.summaries[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakeVectors struct {
	hits     []domain.ScoredProduct
	lastTopK int
	lastEmb  []float32
}

func (f *fakeVectors) SimilaritySearch(_ context.Context, emb []float32, topK int) ([]domain.ScoredProduct, error) {
	f.lastTopK, f.lastEmb = topK, emb
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return []float32{9, 9}, nil
}

func (f *fakeEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) { return nil, nil }

func (f *fakeEmbedder) Model() string { return "fake" }

type fakeQueue struct {
	payloads []jobs.InferencePayload
	timeout  time.Duration
	err      error
}

func (f *fakeQueue) Enqueue(_ context.Context, p jobs.InferencePayload, timeout time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payloads = append(f.payloads, p)
	f.timeout = timeout
	return fmt.Sprintf("job-%d", len(f.payloads)), nil
}

func (f *fakeQueue) Status(_ context.Context, id string) (jobs.JobInfo, error) {
	return jobs.JobInfo{JobID: id, Status: jobs.StatusQueued}, nil
}

func hits(ids ...string) []domain.ScoredProduct {
	out := make([]domain.ScoredProduct, len(ids))
	for i, id := range ids {
		out[i] = domain.ScoredProduct{Product: domain.Product{ID: id}, Score: 1 - float64(i)*0.01}
	}
	return out
}

func neighbor(id string, conf float64) domain.Neighbor {
	return domain.Neighbor{CandidateID: id, Edge: domain.Edge{EdgeType: "SIMILAR_TO", Confidence: conf}}
}

type harness struct {
	products *fakeProducts
	graph    *fakeGraph
	vectors  *fakeVectors
	embedder *fakeEmbedder
	queue    *fakeQueue
}

func newHarness() *harness {
	return &harness{
		products: &fakeProducts{products: map[string]domain.Product{
			"A": {ID: "A", Description: "anchor", Embedding: []float32{1, 0}},
		}},
		graph:    &fakeGraph{summaries: map[string]domain.EdgeSummary{}},
		vectors:  &fakeVectors{},
		embedder: &fakeEmbedder{},
		queue:    &fakeQueue{},
	}
}

func (h *harness) orchestrator(t *testing.T, gate Gate, withQueue bool) *Orchestrator {
	t.Helper()
	d := Deps{Products: h.products, Neighbors: h.graph, Vectors: h.vectors, Embedder: h.embedder}
	if withQueue {
		d.Queue = h.queue
	}
	o, err := NewOrchestrator(d, Options{Gate: gate, MaxTopK: 100, DefaultTopK: 10, JobTimeout: time.Minute, LLMModel: "gpt-test"})
	require.NoError(t, err)
	return o
}

var defaultGate = Gate{Enabled: true, Threshold: 5, MaxConfidence: 0.70}

func TestQueryVectorOnly(t *testing.T) {
	h := newHarness()
	h.vectors.hits = hits("A", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9", "p10", "p11")
	o := h.orchestrator(t, defaultGate, true)

	res, err := o.Query(context.Background(), Request{AnchorID: "A", TopK: 10})
	require.NoError(t, err)

	assert.Equal(t, 0, res.FromGraph)
	assert.Equal(t, 10, res.FromVector)
	require.Len(t, res.Recommendations, 10)
	for _, r := range res.Recommendations {
		assert.NotEqual(t, "A", r.ProductID)
		assert.Equal(t, SourceVector, r.Source)
		assert.NotNil(t, r.Score)
		assert.Nil(t, r.EdgeType)
		assert.Nil(t, r.Confidence)
	}
	assert.Equal(t, 11, h.vectors.lastTopK)
	assert.Equal(t, InferenceEnqueued, res.InferenceStatus)
	require.NotNil(t, res.JobID)
	require.Len(t, h.queue.payloads, 1)
	assert.Len(t, h.queue.payloads[0].CandidateIDs, 10)
	assert.Equal(t, "gpt-test", h.queue.payloads[0].LLMModel)
	assert.Equal(t, time.Minute, h.queue.timeout)
	assert.Equal(t, []string{"A"}, h.products.incremented)
	assert.NotEmpty(t, res.TraceID)
	assert.Zero(t, h.embedder.calls)
}

func TestQueryGraphThenVector(t *testing.T) {
	h := newHarness()
	h.graph.neighbors = []domain.Neighbor{neighbor("g1", 0.9), neighbor("g2", 0.6), neighbor("g3", 0.3)}
	h.vectors.hits = hits("g1", "A", "v1", "v2", "v3")
	o := h.orchestrator(t, defaultGate, true)

	res, err := o.Query(context.Background(), Request{AnchorID: "A", TopK: 5, TraceID: "trace-1"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.FromGraph)
	assert.Equal(t, 2, res.FromVector)
	ids := make([]string, 0, 5)
	for _, r := range res.Recommendations {
		ids = append(ids, r.ProductID)
	}
	assert.Equal(t, []string{"g1", "g2", "g3", "v1", "v2"}, ids)
	assert.InDelta(t, 0.9, *res.Recommendations[0].Confidence, 1e-9)
	assert.Equal(t, "SIMILAR_TO", *res.Recommendations[0].EdgeType)
	assert.Equal(t, 9, h.vectors.lastTopK)
	assert.Equal(t, "trace-1", res.TraceID)
	require.Len(t, h.queue.payloads, 1)
	assert.Equal(t, []string{"v1", "v2"}, h.queue.payloads[0].CandidateIDs)
	assert.Equal(t, "trace-1", h.queue.payloads[0].TraceID)
}

func TestQueryGraphSufficientSkipsVector(t *testing.T) {
	h := newHarness()
	h.graph.neighbors = []domain.Neighbor{neighbor("g1", 0.9), neighbor("g2", 0.8)}
	o := h.orchestrator(t, defaultGate, true)

	res, err := o.Query(context.Background(), Request{AnchorID: "A", TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.FromGraph)
	assert.Zero(t, h.vectors.lastTopK)
	assert.Equal(t, InferenceComplete, res.InferenceStatus)
	assert.Nil(t, res.JobID)
}

func TestQueryAnchorNotFound(t *testing.T) {
	h := newHarness()
	o := h.orchestrator(t, defaultGate, true)
	_, err := o.Query(context.Background(), Request{AnchorID: "ghost", TopK: 5})
	assert.True(t, errkind.Is(err, errkind.KindNotFound))
	assert.Empty(t, h.queue.payloads)
}

func TestQuerySkippedStatus(t *testing.T) {
	h := newHarness()
	h.vectors.hits = hits("v1", "v2")
	o := h.orchestrator(t, defaultGate, true)
	res, err := o.Query(context.Background(), Request{AnchorID: "A", TopK: 2, SkipInference: true})
	require.NoError(t, err)
	assert.Equal(t, InferenceSkipped, res.InferenceStatus)
	assert.Empty(t, h.queue.payloads)

	noQueue := h.orchestrator(t, defaultGate, false)
	res, err = noQueue.Query(context.Background(), Request{AnchorID: "A", TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, InferenceSkipped, res.InferenceStatus)
	assert.False(t, noQueue.InferenceEnabled())
}

func TestQueryCompleteWhenAllFiltered(t *testing.T) {
	h := newHarness()
	h.vectors.hits = hits("v1", "v2")
	h.graph.summaries["v1"] = domain.EdgeSummary{MaxAnchorCount: 5, MaxConfidence: 0.6}
	h.graph.summaries["v2"] = domain.EdgeSummary{MaxAnchorCount: 1, MaxConfidence: 0.72}
	o := h.orchestrator(t, defaultGate, true)

	res, err := o.Query(context.Background(), Request{AnchorID: "A", TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, InferenceComplete, res.InferenceStatus)
	assert.Nil(t, res.JobID)
	assert.Empty(t, h.queue.payloads)
}

func TestQueryComputesMissingEmbedding(t *testing.T) {
	h := newHarness()
	h.products.products["B"] = domain.Product{ID: "B", Description: "no vector yet"}
	h.vectors.hits = hits("v1")
	o := h.orchestrator(t, defaultGate, false)

	_, err := o.Query(context.Background(), Request{AnchorID: "B", TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, h.embedder.calls)
	assert.Equal(t, []float32{9, 9}, h.vectors.lastEmb)
}

func TestQueryMissingEmbeddingInput(t *testing.T) {
	h := newHarness()
	h.products.products["E"] = domain.Product{ID: "E"}
	o := h.orchestrator(t, defaultGate, true)

	_, err := o.Query(context.Background(), Request{AnchorID: "E", TopK: 3})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindInvalidInput))
	assert.Contains(t, err.Error(), "missing embedding input")
}

func TestQueryValidatesTopK(t *testing.T) {
	h := newHarness()
	o := h.orchestrator(t, defaultGate, true)
	for _, k := range []int{-1, 101} {
		_, err := o.Query(context.Background(), Request{AnchorID: "A", TopK: k})
		assert.True(t, errkind.Is(err, errkind.KindInvalidInput), "top_k=%d", k)
	}
	h.vectors.hits = hits("v1")
	res, err := o.Query(context.Background(), Request{AnchorID: "A"})
	require.NoError(t, err)
	assert.Equal(t, 10, h.graph.lastLimit)
	assert.Len(t, res.Recommendations, 1)
}

func TestQueryIncrementFailureIsSwallowed(t *testing.T) {
	h := newHarness()
	h.products.incrementErr = errors.New("write conflict")
	h.vectors.hits = hits("v1")
	o := h.orchestrator(t, defaultGate, false)
	_, err := o.Query(context.Background(), Request{AnchorID: "A", TopK: 1})
	assert.NoError(t, err)
}

func TestQueryEnqueueFailureIsUnavailable(t *testing.T) {
	h := newHarness()
	h.vectors.hits = hits("v1")
	h.queue.err = errkind.Unavailable("queue", errors.New("redis down"))
	o := h.orchestrator(t, defaultGate, true)
	_, err := o.Query(context.Background(), Request{AnchorID: "A", TopK: 1})
	assert.True(t, errkind.Is(err, errkind.KindUnavailable))
}

func TestFilterGateEnabled(t *testing.T) {
	g := &fakeGraph{summaries: map[string]domain.EdgeSummary{
		"weak":      {MaxAnchorCount: 2, MaxConfidence: 0.6},
		"crowded":   {MaxAnchorCount: 5, MaxConfidence: 0.6},
		"confident": {MaxAnchorCount: 1, MaxConfidence: 0.70},
	}}
	f := NewCandidateFilter(g, defaultGate)

	out, err := f.Select(context.Background(), "A", []string{"new2", "weak", "crowded", "confident", "new1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new2", "weak", "new1"}, out)
	assert.Equal(t, 1, g.metaCalls)
	assert.Zero(t, g.flatCalls)
}

func TestFilterGateDisabled(t *testing.T) {
	g := &fakeGraph{summaries: map[string]domain.EdgeSummary{
		"weak": {MaxAnchorCount: 1, MaxConfidence: 0.1},
	}}
	f := NewCandidateFilter(g, Gate{Enabled: false, Threshold: 5, MaxConfidence: 0.7})

	out, err := f.Select(context.Background(), "A", []string{"weak", "fresh"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, out)
	assert.Equal(t, 1, g.flatCalls)
	assert.Zero(t, g.metaCalls)

	out, err = f.Select(context.Background(), "A", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
