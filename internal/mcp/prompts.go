package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
)

type prompt struct {
	def    Prompt
	render func(args map[string]string) (string, error)
}

func (s *Server) registerPrompts() {
	s.prompts["find_recommendations"] = &prompt{
		def: Prompt{
			Name:        "find_recommendations",
			Description: "Find and explain recommendations for a product.",
			Arguments: []PromptArgument{
				{Name: "product_id", Description: "The product to get recommendations for.", Required: true},
			},
		},
		render: func(args map[string]string) (string, error) {
			id := strings.TrimSpace(args["product_id"])
			if id == "" {
				return "", invalidParams("product_id is required")
			}
			return fmt.Sprintf("Use the get_product and get_product_recommendations tools to find "+
				"recommendations for product %s. Then summarize the results "+
				"and explain why each item is recommended.", id), nil
		},
	}
}

func (s *Server) promptDefs() []Prompt {
	return []Prompt{s.prompts["find_recommendations"].def}
}

type getPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

func (s *Server) getPrompt(raw json.RawMessage) (*GetPromptResult, error) {
	var p getPromptParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams("prompts/get params: %v", err)
	}
	pr, ok := s.prompts[p.Name]
	if !ok {
		return nil, invalidParams("unknown prompt: %s", p.Name)
	}
	text, err := pr.render(p.Arguments)
	if err != nil {
		return nil, err
	}
	return &GetPromptResult{
		Description: pr.def.Description,
		Messages:    []PromptMessage{{Role: "user", Content: Content{Type: "text", Text: text}}},
	}, nil
}
