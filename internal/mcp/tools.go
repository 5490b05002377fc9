package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/recommend"
)

type tool struct {
	def    Tool
	schema *jsonschema.Resolved
	call   func(ctx context.Context, args json.RawMessage) (any, error)
}

func (s *Server) registerTools() error {
	productID := &jsonschema.Schema{Type: "string", Description: "The product identifier."}
	defs := []struct {
		name, desc string
		schema     *jsonschema.Schema
		call       func(ctx context.Context, args json.RawMessage) (any, error)
	}{
		{
			name: "get_product",
			desc: "Get product details by ID from the knowledge graph.",
			schema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{"product_id": productID},
				Required:   []string{"product_id"},
			},
			call: s.getProduct,
		},
		{
			name: "get_product_recommendations",
			desc: fmt.Sprintf("Get recommendations for a product from graph edges and vector search. "+
				"top_k is clamped to 1..%d. Never schedules inference.", s.recs.MaxTopK()),
			schema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"product_id": productID,
					"top_k":      {Type: "integer", Description: "Number of recommendations to return."},
				},
				Required: []string{"product_id"},
			},
			call: s.getRecommendations,
		},
	}
	for _, d := range defs {
		resolved, err := d.schema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("mcp: resolve %s schema: %w", d.name, err)
		}
		s.tools[d.name] = &tool{
			def:    Tool{Name: d.name, Description: d.desc, InputSchema: d.schema},
			schema: resolved,
			call:   d.call,
		}
		s.order = append(s.order, d.name)
	}
	return nil
}

func (s *Server) toolDefs() []Tool {
	out := make([]Tool, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name].def)
	}
	return out
}

type productArgs struct {
	ProductID string `json:"product_id"`
}

func (s *Server) getProduct(ctx context.Context, raw json.RawMessage) (any, error) {
	var args productArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errkind.InvalidInput("mcp.get_product", err.Error())
	}
	id := strings.TrimSpace(args.ProductID)
	if id == "" {
		return nil, errkind.InvalidInput("mcp.get_product", "product_id is required")
	}
	return s.products.GetProduct(ctx, id)
}

type recommendArgs struct {
	ProductID string `json:"product_id"`
	TopK      *int   `json:"top_k"`
}

func (s *Server) getRecommendations(ctx context.Context, raw json.RawMessage) (any, error) {
	var args recommendArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errkind.InvalidInput("mcp.get_product_recommendations", err.Error())
	}
	req := recommend.Request{
		AnchorID:      args.ProductID,
		SkipInference: true,
		TraceID:       "mcp-" + uuid.NewString(),
	}
	if args.TopK != nil {
		req.TopK = clampTopK(*args.TopK, s.recs.MaxTopK())
	}
	return s.recs.Query(ctx, req)
}

func clampTopK(n, maxTopK int) int {
	return max(1, min(n, maxTopK))
}
