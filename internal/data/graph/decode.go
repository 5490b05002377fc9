package graph

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abdelatifsd/Adjacent/internal/domain"
	"github.com/abdelatifsd/Adjacent/internal/edges"
)

// timeLayout is fixed-width so stored timestamps order lexically in Cypher.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x.UTC()
	case string:
		if t, err := time.Parse(timeLayout, x); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// edgeProps flattens an edge into relationship properties. Nested edge_props
// are stored as a JSON string since Neo4j properties cannot hold maps.
func edgeProps(e domain.Edge) (map[string]any, error) {
	propsJSON := "{}"
	if len(e.EdgeProps) > 0 {
		b, err := json.Marshal(e.EdgeProps)
		if err != nil {
			return nil, fmt.Errorf("encode edge_props: %w", err)
		}
		propsJSON = string(b)
	}
	var notes any
	if e.Notes != nil {
		notes = *e.Notes
	}
	anchors := e.AnchorsSeen
	if anchors == nil {
		anchors = []string{}
	}
	return map[string]any{
		"edge_id":                 e.EdgeID,
		"edge_type":               e.EdgeType,
		"from_id":                 e.FromID,
		"to_id":                   e.ToID,
		"anchors_seen":            anchors,
		"confidence_0_to_1":       e.Confidence,
		"status":                  string(e.Status),
		"created_at":              formatTime(e.CreatedAt),
		"last_reinforced_at":      formatTime(e.LastReinforcedAt),
		"notes":                   notes,
		"edge_props_json":         propsJSON,
		"created_kind":            string(e.CreatedKind),
		"created_under_anchor_id": e.CreatedUnderAnchorID,
		"created_in_job_id":       e.CreatedInJobID,
	}, nil
}

// decodeEdge rebuilds an edge from relationship properties. aID/bID are the
// matched endpoints and win over stored from/to after canonicalization. An
// unparseable edge_props_json is reported as an error; the returned edge is
// still complete apart from its props.
func decodeEdge(props map[string]any, aID, bID string) (domain.Edge, error) {
	e := domain.Edge{
		EdgeID:               asString(props["edge_id"]),
		EdgeType:             asString(props["edge_type"]),
		AnchorsSeen:          asStrings(props["anchors_seen"]),
		Confidence:           asFloat(props["confidence_0_to_1"]),
		Status:               domain.EdgeStatus(asString(props["status"])),
		CreatedAt:            parseTime(props["created_at"]),
		LastReinforcedAt:     parseTime(props["last_reinforced_at"]),
		CreatedKind:          domain.CreatedKind(asString(props["created_kind"])),
		CreatedUnderAnchorID: asString(props["created_under_anchor_id"]),
		CreatedInJobID:       asString(props["created_in_job_id"]),
		EdgeProps:            map[string]any{},
	}
	if aID == "" || bID == "" {
		aID, bID = asString(props["from_id"]), asString(props["to_id"])
	}
	e.FromID, e.ToID = edges.CanonicalPair(aID, bID)
	if e.Status == "" {
		e.Status = edges.StatusFor(e.Confidence)
	}
	if n, ok := props["notes"].(string); ok {
		e.Notes = &n
	}
	if raw := asString(props["edge_props_json"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.EdgeProps); err != nil {
			e.EdgeProps = map[string]any{}
			return e, fmt.Errorf("edge %s: decode edge_props_json: %w", e.EdgeID, err)
		}
	}
	return e, nil
}

func decodeProduct(m map[string]any) domain.Product {
	p := domain.Product{
		ID:              asString(m["id"]),
		Title:           asString(m["title"]),
		Description:     asString(m["description"]),
		Category:        asString(m["category"]),
		Brand:           asString(m["brand"]),
		Tags:            asStrings(m["tags"]),
		Currency:        asString(m["currency"]),
		Embedding:       asFloat32s(m["embedding"]),
		TotalQueryCount: asInt64(m["total_query_count"]),
		InferenceCount:  asInt64(m["inference_count"]),
	}
	if v, ok := m["price"]; ok && v != nil {
		price := asFloat(v)
		p.Price = &price
	}
	if t := parseTime(m["last_inference_at"]); !t.IsZero() {
		p.LastInferenceAt = &t
	}
	return p
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			if s := strings.TrimSpace(asString(it)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	default:
		return 0
	}
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	default:
		return 0
	}
}

func asFloat32s(v any) []float32 {
	switch x := v.(type) {
	case []float32:
		return x
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out
	case []any:
		out := make([]float32, 0, len(x))
		for _, it := range x {
			out = append(out, float32(asFloat(it)))
		}
		return out
	default:
		return nil
	}
}

func toFloat64s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
