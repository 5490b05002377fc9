package graph

import (
	"context"
	"fmt"
	"math"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Stats is a read-only snapshot of catalog and graph coverage.
type Stats struct {
	ProductCount      int64
	EdgeCount         int64
	ProductsWithEdges int64
	VectorIndex       IndexState
}

type IndexState struct {
	Present bool
	Name    string
	State   string
}

// CoveragePct is the share of products touching at least one edge, rounded
// to one decimal. It is nil for an empty catalog.
func (s Stats) CoveragePct() *float64 {
	if s.ProductCount == 0 {
		return nil
	}
	pct := math.Round(float64(s.ProductsWithEdges)/float64(s.ProductCount)*1000) / 10
	return &pct
}

func (s Schema) statsCypher() string {
	return fmt.Sprintf(`
CALL { MATCH (p:%[1]s) RETURN count(p) AS products }
CALL { MATCH (:%[1]s)-[r:%[2]s]->(:%[1]s) RETURN count(r) AS edges }
CALL { MATCH (p:%[1]s)-[:%[2]s]-() RETURN count(DISTINCT p) AS covered }
RETURN products, edges, covered
`, s.ProductLabel, s.RelType)
}

const showIndexesCypher = `SHOW INDEXES YIELD name, type, state RETURN name, type, state`

// Stats counts products and edges, then looks up the vector index. A failed
// index lookup leaves VectorIndex empty rather than failing the snapshot.
func (s *ProductStore) Stats(ctx context.Context) (Stats, error) {
	const op = "graph.stats"
	out, err := s.db.Read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.statsCypher(), nil)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		products, _ := rec.Get("products")
		edges, _ := rec.Get("edges")
		covered, _ := rec.Get("covered")
		return Stats{
			ProductCount:      asInt64(products),
			EdgeCount:         asInt64(edges),
			ProductsWithEdges: asInt64(covered),
		}, nil
	})
	if err != nil {
		return Stats{}, err
	}
	st, _ := out.(Stats)

	idx, err := s.db.Read(ctx, "graph.show_indexes", func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, showIndexesCypher, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			name, _ := rec.Get("name")
			typ, _ := rec.Get("type")
			state, _ := rec.Get("state")
			if asString(name) == s.schema.VectorIndex || asString(typ) == "VECTOR" {
				return IndexState{Present: true, Name: asString(name), State: asString(state)}, nil
			}
		}
		return IndexState{}, nil
	})
	if err == nil {
		st.VectorIndex, _ = idx.(IndexState)
	}
	return st, nil
}
