package app

import (
	"context"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/platform/neo4jdb"
	"github.com/abdelatifsd/Adjacent/internal/platform/openaix"
	"github.com/abdelatifsd/Adjacent/internal/platform/redisdb"
	"github.com/abdelatifsd/Adjacent/internal/temporalx"
)

func (a *App) wireClients(ctx context.Context, opts Options) error {
	cfg := a.Cfg

	// Neo4j
	db, err := neo4jdb.NewClient(ctx, a.Log, cfg.Neo4j)
	if err != nil {
		return wrap("neo4j", err)
	}
	a.Neo4j = db

	// OpenAI serves both embeddings and edge inference.
	if cfg.InferenceEnabled() {
		oc, err := openaix.NewClient(cfg.LLM)
		if err != nil {
			return wrap("openai", err)
		}
		a.OpenAI = oc
	} else {
		a.Log.Warn("OPENAI_API_KEY not set; inference and on-demand embeddings are disabled")
	}

	if !opts.Queue || !cfg.InferenceEnabled() {
		return nil
	}
	switch cfg.Queue.Backend {
	case config.BackendTemporal:
		tc, err := temporalx.NewClient(ctx, a.Log, cfg.Temporal)
		if err != nil {
			return wrap("temporal", err)
		}
		a.Temporal = tc
	default:
		rdb, err := redisdb.NewClient(ctx, a.Log, cfg.Redis)
		if err != nil {
			return wrap("redis", err)
		}
		a.Redis = rdb
	}
	return nil
}
