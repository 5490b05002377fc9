package graph

import (
	"fmt"
	"strings"
)

const productProjection = `.id, .title, .description, .category, .brand, .tags, .price, .currency, .embedding, .last_inference_at, .total_query_count, .inference_count`

// ---- edges ----

func (s Schema) upsertEdgeCypher() string {
	return fmt.Sprintf(`
MERGE (a:%[1]s {id: $from_id})
MERGE (b:%[1]s {id: $to_id})
MERGE (a)-[r:%[2]s {edge_id: $edge_id}]->(b)
SET r += $rel_props
`, s.ProductLabel, s.RelType)
}

func (s Schema) getEdgeCypher() string {
	return fmt.Sprintf(`
MATCH (a:%[1]s)-[r:%[2]s {edge_id: $edge_id}]-(b:%[1]s)
RETURN a.id AS a_id, b.id AS b_id, properties(r) AS props
LIMIT 1
`, s.ProductLabel, s.RelType)
}

// neighborsCypher keeps the best relationship per candidate, then orders
// candidates by confidence and recency.
func (s Schema) neighborsCypher(byType, byMinConf bool) string {
	var where []string
	if byType {
		where = append(where, "r.edge_type = $edge_type")
	}
	if byMinConf {
		where = append(where, "r.confidence_0_to_1 >= $min_conf")
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	return fmt.Sprintf(`
MATCH (a:%[1]s {id: $anchor_id})-[r:%[2]s]-(b:%[1]s)
%[3]sWITH b.id AS candidate_id, properties(r) AS props
ORDER BY props.confidence_0_to_1 DESC, props.last_reinforced_at DESC
WITH candidate_id, collect(props)[0] AS props
ORDER BY props.confidence_0_to_1 DESC, props.last_reinforced_at DESC
LIMIT $limit
RETURN candidate_id, props
`, s.ProductLabel, s.RelType, clause)
}

func (s Schema) anchorEdgesCypher() string {
	return fmt.Sprintf(`
MATCH (a:%[1]s {id: $anchor_id})-[r:%[2]s]-(c:%[1]s)
WHERE c.id IN $candidate_ids
RETURN collect(DISTINCT c.id) AS connected_ids
`, s.ProductLabel, s.RelType)
}

func (s Schema) anchorEdgesWithMetadataCypher() string {
	return fmt.Sprintf(`
MATCH (a:%[1]s {id: $anchor_id})-[r:%[2]s]-(c:%[1]s)
WHERE c.id IN $candidate_ids
RETURN c.id AS candidate_id,
       max(size(coalesce(r.anchors_seen, []))) AS max_anchor_count,
       max(coalesce(r.confidence_0_to_1, 0.0)) AS max_confidence
`, s.ProductLabel, s.RelType)
}

// ---- products ----

func (s Schema) getProductCypher() string {
	return fmt.Sprintf(`
MATCH (p:%s {id: $product_id})
RETURN p {%s} AS product
`, s.ProductLabel, productProjection)
}

func (s Schema) getProductsCypher() string {
	return fmt.Sprintf(`
MATCH (p:%s)
WHERE p.id IN $product_ids
RETURN p {%s} AS product
`, s.ProductLabel, productProjection)
}

func (s Schema) incrementQueryCountCypher() string {
	return fmt.Sprintf(`
MATCH (p:%s {id: $product_id})
SET p.total_query_count = coalesce(p.total_query_count, 0) + 1
`, s.ProductLabel)
}

func (s Schema) markAnchorInferredCypher() string {
	return fmt.Sprintf(`
MATCH (p:%s {id: $product_id})
SET p.last_inference_at = datetime(),
    p.inference_count = coalesce(p.inference_count, 0) + 1
`, s.ProductLabel)
}

func (s Schema) upsertProductsCypher() string {
	return fmt.Sprintf(`
UNWIND $rows AS row
MERGE (p:%s {id: row.id})
SET p.title = row.title,
    p.description = row.description,
    p.category = row.category,
    p.brand = row.brand,
    p.tags = row.tags,
    p.price = row.price,
    p.currency = row.currency,
    p.image_url = row.image_url,
    p.metadata_json = row.metadata_json,
    p.embed_text = row.embed_text,
    p.embedding_spec_version = row.embedding_spec_version,
    p.ingested_at = datetime()
RETURN count(p) AS upserted
`, s.ProductLabel)
}

// ---- vectors ----

const vectorSearchCypher = `
CALL db.index.vector.queryNodes($index_name, $top_k, $embedding)
YIELD node, score
RETURN node {.id, .title, .description, .category, .brand, .tags, .price, .currency} AS product, score
ORDER BY score DESC
`

func (s Schema) createVectorIndexCypher(dimensions int) string {
	return fmt.Sprintf(`
CREATE VECTOR INDEX %s IF NOT EXISTS
FOR (p:%s) ON p.embedding
OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: 'cosine'}}
`, s.VectorIndex, s.ProductLabel, dimensions)
}

func (s Schema) upsertEmbeddingsCypher() string {
	return fmt.Sprintf(`
UNWIND $rows AS row
MATCH (p:%s {id: row.id})
SET p.embedding = row.embedding,
    p.embedding_dim = row.dimension,
    p.embedding_updated_at = datetime({timezone: 'UTC'})
FOREACH (ignore IN CASE WHEN row.model IS NULL THEN [] ELSE [1] END |
    SET p.embedding_model = row.model)
RETURN count(p) AS updated
`, s.ProductLabel)
}

func (s Schema) productsNeedingEmbeddingsCypher(limited bool) string {
	q := fmt.Sprintf(`
MATCH (p:%s)
WHERE p.embedding IS NULL AND p.embed_text IS NOT NULL
RETURN p.id AS id, p.embed_text AS embed_text
ORDER BY p.id
`, s.ProductLabel)
	if limited {
		q += "LIMIT $limit\n"
	}
	return q
}
