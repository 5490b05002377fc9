package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

func TestProjectKeepsOnlySafeFields(t *testing.T) {
	price := 19.5
	view, err := Project(Product{
		ID:          "sku_1",
		Description: "  Stainless kettle ",
		Title:       "Kettle",
		Category:    "kitchen",
		Price:       &price,
		Embedding:   []float32{0.1, 0.2},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(view)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.ElementsMatch(t,
		[]string{"id", "description", "title", "brand", "category", "tags", "price", "currency"},
		keys(got))
	assert.Equal(t, "Stainless kettle", got["description"])
	assert.Nil(t, got["brand"])
	assert.Equal(t, []any{}, got["tags"])
}

func TestProjectRequiresDescription(t *testing.T) {
	_, err := Project(Product{ID: "sku_2"})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindInvalidInput))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
