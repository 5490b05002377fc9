package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdelatifsd/Adjacent/internal/data/graph"
)

// EmbeddingSpecVersion names the embed_text recipe. Changing the recipe means
// re-embedding the catalog.
const EmbeddingSpecVersion = "v1"

// Normalize maps a validated record onto a storage row. Optional strings that
// are blank after trimming are dropped.
func Normalize(raw map[string]any) (graph.ProductRow, error) {
	row := graph.ProductRow{
		ID:                   strings.TrimSpace(str(raw["id"])),
		Description:          strings.TrimSpace(str(raw["description"])),
		Title:                strings.TrimSpace(str(raw["title"])),
		Brand:                strings.TrimSpace(str(raw["brand"])),
		Category:             strings.TrimSpace(str(raw["category"])),
		Currency:             strings.TrimSpace(str(raw["currency"])),
		ImageURL:             strings.TrimSpace(str(raw["image_url"])),
		EmbeddingSpecVersion: EmbeddingSpecVersion,
	}
	if row.ID == "" || row.Description == "" {
		return row, fmt.Errorf("id and description are required")
	}
	row.EmbedText = embedText(row)

	if tags, ok := raw["tags"].([]any); ok {
		for _, t := range tags {
			if s := strings.TrimSpace(str(t)); s != "" {
				row.Tags = append(row.Tags, s)
			}
		}
	}
	if p, ok := raw["price"].(float64); ok {
		row.Price = &p
	}
	if m, ok := raw["metadata"].(map[string]any); ok && len(m) > 0 {
		b, err := json.Marshal(m)
		if err != nil {
			return row, fmt.Errorf("encode metadata: %w", err)
		}
		row.MetadataJSON = string(b)
	}
	return row, nil
}

func embedText(row graph.ProductRow) string {
	return row.Description
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
