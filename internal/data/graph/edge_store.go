package graph

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/neo4jdb"
)

// EdgeStore persists recommendation edges as a single relationship type with
// the edge type carried as a property.
type EdgeStore struct {
	db     *neo4jdb.Client
	schema Schema
}

func NewEdgeStore(db *neo4jdb.Client, schema Schema) (*EdgeStore, error) {
	if db == nil {
		return nil, errors.New("graph: neo4j client required")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &EdgeStore{db: db, schema: schema}, nil
}

// GetEdge returns nil, nil when no relationship carries edgeID.
func (s *EdgeStore) GetEdge(ctx context.Context, edgeID string) (*domain.Edge, error) {
	const op = "graph.get_edge"
	out, err := s.db.Read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.getEdgeCypher(), map[string]any{"edge_id": edgeID})
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
		rec := records[0]
		a, _ := rec.Get("a_id")
		b, _ := rec.Get("b_id")
		props, _ := rec.Get("props")
		pm, _ := props.(map[string]any)
		edge, err := decodeEdge(pm, asString(a), asString(b))
		if err != nil {
			// Refuse to hand back an edge whose props would be overwritten
			// with nothing on the next upsert.
			return nil, errkind.SchemaViolation(op, "corrupt edge properties", err)
		}
		return &edge, nil
	})
	if err != nil {
		return nil, err
	}
	edge, _ := out.(*domain.Edge)
	return edge, nil
}

func (s *EdgeStore) UpsertEdge(ctx context.Context, e domain.Edge) error {
	const op = "graph.upsert_edge"
	if e.EdgeID == "" || e.FromID == "" || e.ToID == "" {
		return errkind.InvalidInput(op, "edge requires edge_id, from_id and to_id")
	}
	props, err := edgeProps(e)
	if err != nil {
		return errkind.Internal(op, err)
	}
	_, err = s.db.Write(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.upsertEdgeCypher(), map[string]any{
			"from_id":   e.FromID,
			"to_id":     e.ToID,
			"edge_id":   e.EdgeID,
			"rel_props": props,
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// GetNeighbors returns at most one edge per candidate, best first.
func (s *EdgeStore) GetNeighbors(ctx context.Context, anchorID string, q domain.NeighborQuery) ([]domain.Neighbor, error) {
	const op = "graph.get_neighbors"
	if q.Limit <= 0 {
		return nil, nil
	}
	params := map[string]any{"anchor_id": anchorID, "limit": int64(q.Limit)}
	if q.EdgeType != nil {
		params["edge_type"] = *q.EdgeType
	}
	if q.MinConfidence != nil {
		params["min_conf"] = *q.MinConfidence
	}
	cypher := s.schema.neighborsCypher(q.EdgeType != nil, q.MinConfidence != nil)

	out, err := s.db.Read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		neighbors := make([]domain.Neighbor, 0, len(records))
		for _, rec := range records {
			cid, _ := rec.Get("candidate_id")
			props, _ := rec.Get("props")
			pm, _ := props.(map[string]any)
			candidate := asString(cid)
			// Neighbor views never expose props; a corrupt blob surfaces on GetEdge.
			edge, _ := decodeEdge(pm, anchorID, candidate)
			neighbors = append(neighbors, domain.Neighbor{
				CandidateID: candidate,
				Edge:        edge,
			})
		}
		return neighbors, nil
	})
	if err != nil {
		return nil, err
	}
	neighbors, _ := out.([]domain.Neighbor)
	return neighbors, nil
}

// GetAnchorEdges reports which candidates already share any edge with the anchor.
func (s *EdgeStore) GetAnchorEdges(ctx context.Context, anchorID string, candidateIDs []string) (map[string]struct{}, error) {
	const op = "graph.get_anchor_edges"
	connected := map[string]struct{}{}
	if len(candidateIDs) == 0 {
		return connected, nil
	}
	_, err := s.db.Read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.anchorEdgesCypher(), map[string]any{
			"anchor_id":     anchorID,
			"candidate_ids": candidateIDs,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			ids, _ := rec.Get("connected_ids")
			for _, id := range asStrings(ids) {
				connected[id] = struct{}{}
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return connected, nil
}

// GetAnchorEdgesWithMetadata aggregates every relationship between the anchor and
// each connected candidate, across edge types.
func (s *EdgeStore) GetAnchorEdgesWithMetadata(ctx context.Context, anchorID string, candidateIDs []string) (map[string]domain.EdgeSummary, error) {
	const op = "graph.get_anchor_edges_with_metadata"
	out := map[string]domain.EdgeSummary{}
	if len(candidateIDs) == 0 {
		return out, nil
	}
	_, err := s.db.Read(ctx, op, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.schema.anchorEdgesWithMetadataCypher(), map[string]any{
			"anchor_id":     anchorID,
			"candidate_ids": candidateIDs,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			cid, _ := rec.Get("candidate_id")
			count, _ := rec.Get("max_anchor_count")
			conf, _ := rec.Get("max_confidence")
			out[asString(cid)] = domain.EdgeSummary{
				MaxAnchorCount: int(asInt64(count)),
				MaxConfidence:  asFloat(conf),
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
