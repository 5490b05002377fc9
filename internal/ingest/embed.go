package ingest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abdelatifsd/Adjacent/internal/data/graph"
	"github.com/abdelatifsd/Adjacent/internal/embedding"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

type EmbedSource interface {
	ProductsNeedingEmbeddings(ctx context.Context, limit int) ([]graph.EmbedCandidate, error)
}

type VectorWriter interface {
	CreateVectorIndex(ctx context.Context, dimensions int) error
	UpsertEmbeddings(ctx context.Context, rows []graph.EmbeddingRow) (int, error)
}

type BackfillOptions struct {
	Limit     int
	BatchSize int
	// Parallel batches in flight against the embedding API.
	Concurrency int
}

type BackfillResult struct {
	Candidates int `json:"candidates"`
	Updated    int `json:"updated"`
	// Missing counts vectors whose product disappeared before the write.
	Missing    int `json:"missing"`
	Dimensions int `json:"dimensions"`
}

type Backfiller struct {
	source   EmbedSource
	vectors  VectorWriter
	provider embedding.Provider
	log      *logger.Logger
}

func NewBackfiller(source EmbedSource, vectors VectorWriter, provider embedding.Provider, log *logger.Logger) (*Backfiller, error) {
	if source == nil || vectors == nil || provider == nil {
		return nil, fmt.Errorf("ingest: source, vector store and embedding provider are required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Backfiller{source: source, vectors: vectors, provider: provider, log: log.With("component", "EmbedBackfill")}, nil
}

// Run embeds every pending product, creates the vector index sized to the
// model output, then writes the vectors.
func (b *Backfiller) Run(ctx context.Context, opts BackfillOptions) (BackfillResult, error) {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	conc := opts.Concurrency
	if conc <= 0 {
		conc = 2
	}

	pending, err := b.source.ProductsNeedingEmbeddings(ctx, opts.Limit)
	if err != nil {
		return BackfillResult{}, err
	}
	res := BackfillResult{Candidates: len(pending)}
	if len(pending) == 0 {
		b.log.Info("no products need embeddings")
		return res, nil
	}

	rows := make([]graph.EmbeddingRow, len(pending))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for i := 0; i < len(pending); i += batch {
		start, end := i, min(i+batch, len(pending))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, p := range pending[start:end] {
				texts = append(texts, p.EmbedText)
			}
			vecs, err := b.provider.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", start, end, len(vecs), len(texts))
			}
			mu.Lock()
			defer mu.Unlock()
			for j, v := range vecs {
				rows[start+j] = graph.EmbeddingRow{ID: pending[start+j].ID, Embedding: v, Model: b.provider.Model()}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Dimensions = len(rows[0].Embedding)
	if err := b.vectors.CreateVectorIndex(ctx, res.Dimensions); err != nil {
		return res, fmt.Errorf("create vector index: %w", err)
	}
	updated, err := b.vectors.UpsertEmbeddings(ctx, rows)
	if err != nil {
		return res, err
	}
	res.Updated = updated
	res.Missing = len(rows) - updated
	if res.Missing > 0 {
		b.log.Warn("some products vanished before their embedding was stored", "missing", res.Missing)
	}
	b.log.Info("embedding backfill complete",
		"updated", res.Updated,
		"dimensions", res.Dimensions,
		"model", b.provider.Model(),
	)
	return res, nil
}
