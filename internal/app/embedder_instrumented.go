package app

import (
	"context"

	"github.com/abdelatifsd/Adjacent/internal/embedding"
	"github.com/abdelatifsd/Adjacent/internal/observability"
	"github.com/abdelatifsd/Adjacent/internal/platform/ctxutil"
)

const opEmbedding = "embedding"

// instrumentedEmbedder records one span per provider call.
type instrumentedEmbedder struct {
	inner embedding.Provider
	sink  observability.Sink
}

func instrumentEmbedder(inner embedding.Provider, sink observability.Sink) embedding.Provider {
	if inner == nil {
		return nil
	}
	return &instrumentedEmbedder{inner: inner, sink: observability.OrNop(sink)}
}

func (e *instrumentedEmbedder) Model() string { return e.inner.Model() }

func (e *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	span := observability.StartSpan(ctx, e.sink, "embed", opEmbedding, traceID(ctx), "model", e.inner.Model())
	out, err := e.inner.Embed(ctx, text)
	span.SetCount("dimensions", len(out))
	span.End(err)
	return out, err
}

func (e *instrumentedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	span := observability.StartSpan(ctx, e.sink, "embed_batch", opEmbedding, traceID(ctx), "model", e.inner.Model())
	span.SetCount("inputs", len(texts))
	out, err := e.inner.EmbedBatch(ctx, texts)
	span.End(err)
	return out, err
}

func traceID(ctx context.Context) string {
	if td := ctxutil.GetTraceData(ctx); td != nil {
		return td.TraceID
	}
	return ""
}
