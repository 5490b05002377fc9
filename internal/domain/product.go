package domain

import (
	"strings"
	"time"

	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

// Product is a catalog node as stored in the graph. Ingestion creates it; the
// query path bumps TotalQueryCount and the inference worker stamps LastInferenceAt.
type Product struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Title       string    `json:"title,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Embedding   []float32 `json:"-"`

	TotalQueryCount int64      `json:"total_query_count,omitempty"`
	InferenceCount  int64      `json:"inference_count,omitempty"`
	LastInferenceAt *time.Time `json:"last_inference_at,omitempty"`
}

// ScoredProduct is one vector similarity hit.
type ScoredProduct struct {
	Product Product
	Score   float64
}

// LLMProductView is the only product shape sent to the inference model.
// Embeddings, images and free-form metadata are deliberately absent.
type LLMProductView struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Title       *string  `json:"title"`
	Brand       *string  `json:"brand"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`
	Price       *float64 `json:"price"`
	Currency    *string  `json:"currency"`
}

// Project converts a stored product into its inference view.
func Project(p Product) (LLMProductView, error) {
	id := strings.TrimSpace(p.ID)
	desc := strings.TrimSpace(p.Description)
	if id == "" || desc == "" {
		label := id
		if label == "" {
			label = "<no id>"
		}
		return LLMProductView{}, errkind.InvalidInput("project", "product missing required field(s): "+label)
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return LLMProductView{
		ID:          id,
		Description: desc,
		Title:       optString(p.Title),
		Brand:       optString(p.Brand),
		Category:    optString(p.Category),
		Tags:        tags,
		Price:       p.Price,
		Currency:    optString(p.Currency),
	}, nil
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
