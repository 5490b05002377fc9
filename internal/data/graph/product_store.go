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

type ProductStore struct {
	db     *neo4jdb.Client
	schema Schema
}

func NewProductStore(db *neo4jdb.Client, schema Schema) (*ProductStore, error) {
	if db == nil {
		return nil, errors.New("graph: neo4j client required")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &ProductStore{db: db, schema: schema}, nil
}

// ProductRow is one normalized catalog record written by ingestion.
type ProductRow struct {
	ID                   string
	Title                string
	Description          string
	Category             string
	Brand                string
	Tags                 []string
	Price                *float64
	Currency             string
	ImageURL             string
	MetadataJSON         string
	EmbedText            string
	EmbeddingSpecVersion string
}

func (r ProductRow) params() map[string]any {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	m := map[string]any{
		"id":                     r.ID,
		"title":                  nilIfEmpty(r.Title),
		"description":            r.Description,
		"category":               nilIfEmpty(r.Category),
		"brand":                  nilIfEmpty(r.Brand),
		"tags":                   tags,
		"price":                  nil,
		"currency":               nilIfEmpty(r.Currency),
		"image_url":              nilIfEmpty(r.ImageURL),
		"metadata_json":          nilIfEmpty(r.MetadataJSON),
		"embed_text":             nilIfEmpty(r.EmbedText),
		"embedding_spec_version": nilIfEmpty(r.EmbeddingSpecVersion),
	}
	if r.Price != nil {
		m["price"] = *r.Price
	}
	return m
}

// EmbedCandidate is a product that has text to embed but no vector yet.
type EmbedCandidate struct {
	ID        string
	EmbedText string
}

// GetProduct returns errkind.NotFound when the id does not exist.
func (s *ProductStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	const op = "graph.get_product"
	out, err := s.db.Read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.getProductCypher(), map[string]any{"product_id": id})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		raw, _ := records[0].Get("product")
		m, _ := raw.(map[string]any)
		p := decodeProduct(m)
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	p, _ := out.(*domain.Product)
	if p == nil {
		return nil, errkind.NotFound(op, fmt.Sprintf("product not found: %s", id))
	}
	return p, nil
}

// GetProducts fetches every id that exists, preserving the requested order.
func (s *ProductStore) GetProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	const op = "graph.get_products"
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := s.db.Read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.getProductsCypher(), map[string]any{"product_ids": ids})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]domain.Product, len(records))
		for _, rec := range records {
			raw, _ := rec.Get("product")
			m, _ := raw.(map[string]any)
			p := decodeProduct(m)
			byID[p.ID] = p
		}
		return byID, nil
	})
	if err != nil {
		return nil, err
	}
	byID, _ := out.(map[string]domain.Product)
	products := make([]domain.Product, 0, len(byID))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *ProductStore) IncrementQueryCount(ctx context.Context, id string) error {
	return s.exec(ctx, "graph.increment_query_count", s.schema.incrementQueryCountCypher(), map[string]any{"product_id": id})
}

// MarkAnchorInferred stamps last_inference_at and bumps inference_count.
func (s *ProductStore) MarkAnchorInferred(ctx context.Context, id string) error {
	return s.exec(ctx, "graph.mark_anchor_inferred", s.schema.markAnchorInferredCypher(), map[string]any{"product_id": id})
}

// UpsertProducts MERGEs rows by id and returns how many nodes were written.
func (s *ProductStore) UpsertProducts(ctx context.Context, rows []ProductRow) (int, error) {
	const op = "graph.upsert_products"
	if len(rows) == 0 {
		return 0, nil
	}
	params := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		params = append(params, r.params())
	}
	out, err := s.db.Write(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.upsertProductsCypher(), map[string]any{"rows": params})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := rec.Get("upserted")
		return asInt64(n), nil
	})
	if err != nil {
		return 0, err
	}
	n, _ := out.(int64)
	return int(n), nil
}

// ProductsNeedingEmbeddings lists products with embed_text and no embedding.
// limit <= 0 means no limit.
func (s *ProductStore) ProductsNeedingEmbeddings(ctx context.Context, limit int) ([]EmbedCandidate, error) {
	const op = "graph.products_needing_embeddings"
	params := map[string]any{}
	if limit > 0 {
		params["limit"] = int64(limit)
	}
	out, err := s.db.Read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.productsNeedingEmbeddingsCypher(limit > 0), params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]EmbedCandidate, 0, len(records))
		for _, rec := range records {
			id, _ := rec.Get("id")
			text, _ := rec.Get("embed_text")
			items = append(items, EmbedCandidate{ID: asString(id), EmbedText: asString(text)})
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	items, _ := out.([]EmbedCandidate)
	return items, nil
}

// EnsureSchema creates the product id uniqueness constraint, best-effort.
func (s *ProductStore) EnsureSchema(ctx context.Context) {
	s.db.EnsureSchema(ctx, s.schema.ProductLabel)
}

func (s *ProductStore) exec(ctx context.Context, op, cypher string, params map[string]any) error {
	_, err := s.db.Write(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
