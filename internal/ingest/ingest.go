// Package ingest loads a product catalog into the graph and backfills
// embeddings for products that have text but no vector.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/abdelatifsd/Adjacent/internal/data/graph"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

type ProductWriter interface {
	UpsertProducts(ctx context.Context, rows []graph.ProductRow) (int, error)
	EnsureSchema(ctx context.Context)
}

type Options struct {
	BatchSize int
	// Limit stops after this many valid records; zero means all.
	Limit int
	// SkipSchema leaves constraints alone.
	SkipSchema bool
}

type Summary struct {
	Records  int `json:"records"`
	Upserted int `json:"upserted"`
	Batches  int `json:"batches"`
}

type Ingester struct {
	store     ProductWriter
	validator *Validator
	log       *logger.Logger
}

func NewIngester(store ProductWriter, log *logger.Logger) (*Ingester, error) {
	if store == nil {
		return nil, fmt.Errorf("ingest: product store required")
	}
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Ingester{store: store, validator: v, log: log.With("component", "Ingester")}, nil
}

// IngestFile validates the whole file before writing anything.
func (in *Ingester) IngestFile(ctx context.Context, path string, opts Options) (Summary, error) {
	recs, err := ReadRecords(path)
	if err != nil {
		return Summary{}, err
	}
	if opts.Limit > 0 && len(recs) > opts.Limit {
		recs = recs[:opts.Limit]
	}
	if err := in.validator.ValidateAll(path, recs); err != nil {
		return Summary{}, err
	}
	rows := make([]graph.ProductRow, 0, len(recs))
	for _, rec := range recs {
		row, err := Normalize(rec.Raw)
		if err != nil {
			return Summary{}, fmt.Errorf("line %d in %s: %w", rec.Line, path, err)
		}
		rows = append(rows, row)
	}
	return in.Ingest(ctx, rows, opts)
}

func (in *Ingester) Ingest(ctx context.Context, rows []graph.ProductRow, opts Options) (Summary, error) {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 500
	}
	if !opts.SkipSchema {
		in.store.EnsureSchema(ctx)
	}

	start := time.Now()
	sum := Summary{Records: len(rows)}
	for i := 0; i < len(rows); i += batch {
		end := min(i+batch, len(rows))
		n, err := in.store.UpsertProducts(ctx, rows[i:end])
		if err != nil {
			return sum, fmt.Errorf("upsert batch %d: %w", sum.Batches+1, err)
		}
		sum.Upserted += n
		sum.Batches++
		in.log.Debug("product batch written", "batch", sum.Batches, "rows", end-i)
	}
	in.log.Info("ingest complete",
		"records", sum.Records,
		"upserted", sum.Upserted,
		"batches", sum.Batches,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return sum, nil
}
