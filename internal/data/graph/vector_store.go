package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/neo4jdb"
)

// VectorStore searches and maintains product embeddings through the native
// Neo4j vector index.
type VectorStore struct {
	db     *neo4jdb.Client
	schema Schema
}

func NewVectorStore(db *neo4jdb.Client, schema Schema) (*VectorStore, error) {
	if db == nil {
		return nil, errors.New("graph: neo4j client required")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &VectorStore{db: db, schema: schema}, nil
}

type EmbeddingRow struct {
	ID        string
	Embedding []float32
	Model     string
}

func (s *VectorStore) SimilaritySearch(ctx context.Context, embedding []float32, topK int) ([]domain.ScoredProduct, error) {
	const op = "graph.similarity_search"
	if len(embedding) == 0 {
		return nil, errkind.InvalidInput(op, "missing embedding")
	}
	if topK <= 0 {
		return nil, nil
	}
	params := map[string]any{
		"index_name": s.schema.VectorIndex,
		"top_k":      int64(topK),
		"embedding":  toFloat64s(embedding),
	}
	out, err := s.db.Read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, vectorSearchCypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		hits := make([]domain.ScoredProduct, 0, len(records))
		for _, rec := range records {
			raw, _ := rec.Get("product")
			score, _ := rec.Get("score")
			m, _ := raw.(map[string]any)
			hits = append(hits, domain.ScoredProduct{Product: decodeProduct(m), Score: asFloat(score)})
		}
		return hits, nil
	})
	if err != nil {
		return nil, err
	}
	hits, _ := out.([]domain.ScoredProduct)
	return hits, nil
}

// CreateVectorIndex creates the cosine index if it does not exist yet.
func (s *VectorStore) CreateVectorIndex(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return errkind.InvalidInput("graph.create_vector_index", fmt.Sprintf("invalid dimensions %d", dimensions))
	}
	return s.db.RunSchema(ctx, s.schema.createVectorIndexCypher(dimensions))
}

// UpsertEmbeddings writes vectors onto existing products and returns how many
// matched. Rows for unknown ids are ignored.
func (s *VectorStore) UpsertEmbeddings(ctx context.Context, rows []EmbeddingRow) (int, error) {
	const op = "graph.upsert_embeddings"
	if len(rows) == 0 {
		return 0, nil
	}
	params := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		row := map[string]any{
			"id":        r.ID,
			"embedding": toFloat64s(r.Embedding),
			"dimension": int64(len(r.Embedding)),
			"model":     nil,
		}
		if r.Model != "" {
			row["model"] = r.Model
		}
		params = append(params, row)
	}
	out, err := s.db.Write(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.upsertEmbeddingsCypher(), map[string]any{"rows": params})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := rec.Get("updated")
		return asInt64(n), nil
	})
	if err != nil {
		return 0, err
	}
	n, _ := out.(int64)
	return int(n), nil
}
