// Package embedding turns product text into vectors.
package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/openaix"
)

type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

const maxBatch = 2048

// OpenAI embeds through the embeddings endpoint. Dimensions of zero leaves the
// model's native size.
type OpenAI struct {
	client     *openai.Client
	model      string
	dimensions int
}

var _ Provider = (*OpenAI)(nil)

func NewOpenAI(client *openai.Client, cfg config.EmbeddingConfig) (*OpenAI, error) {
	if client == nil {
		return nil, fmt.Errorf("embedding: openai client required")
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAI{client: client, model: model, dimensions: cfg.Dimensions}, nil
}

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errkind.InvalidInput("embedding.embed", "missing embedding input")
	}
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input in input order. Any gap in the
// response is an error rather than a silently shorter result.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, len(texts))
	for i := 0; i < len(texts); i += maxBatch {
		end := min(i+maxBatch, len(texts))
		vecs, err := o.call(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", i, end, err)
		}
		copy(out[i:], vecs)
	}
	return out, nil
}

func (o *OpenAI) call(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "embedding.openai"
	params := openai.EmbeddingNewParams{
		Model:          o.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if o.dimensions > 0 {
		params.Dimensions = openai.Int(int64(o.dimensions))
	}
	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, openaix.Classify(op, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errkind.Internal(op, fmt.Errorf("embedding count mismatch: requested=%d returned=%d", len(texts), len(resp.Data)))
	}
	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= int64(len(texts)) {
			return nil, errkind.Internal(op, fmt.Errorf("unexpected embedding index %d for batch size %d", item.Index, len(texts)))
		}
		vec := make([]float32, len(item.Embedding))
		for j, f := range item.Embedding {
			vec[j] = float32(f)
		}
		vecs[item.Index] = vec
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, errkind.Internal(op, fmt.Errorf("missing embedding for index %d", i))
		}
	}
	return vecs, nil
}
