package app

import (
	"context"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/embedding"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/jobs/inference"
	"github.com/abdelatifsd/Adjacent/internal/jobs/redisq"
	"github.com/abdelatifsd/Adjacent/internal/jobs/temporalq"
	"github.com/abdelatifsd/Adjacent/internal/llm"
	"github.com/abdelatifsd/Adjacent/internal/recommend"
)

func (a *App) wireServices(_ context.Context, opts Options) error {
	cfg := a.Cfg

	prompts, err := llm.DefaultPrompts()
	if err != nil {
		return wrap("prompts", err)
	}
	a.Prompts = prompts

	if a.OpenAI != nil {
		emb, err := embedding.NewOpenAI(a.OpenAI, cfg.Embedding)
		if err != nil {
			return wrap("embedding provider", err)
		}
		a.Embedder = instrumentEmbedder(emb, a.Sink)

		inf, err := llm.NewOpenAIInferencer(a.OpenAI, cfg.LLM.Model, prompts)
		if err != nil {
			return wrap("edge inferencer", err)
		}
		a.Inferencer = inf
	}

	a.Registry = jobs.NewRegistry()
	if a.Inferencer != nil {
		w, err := inference.NewWorker(edgeRepository{a.Stores.Edges, a.Stores.Products}, a.Inferencer, a.Sink, a.Log)
		if err != nil {
			return wrap("inference worker", err)
		}
		if err := a.Registry.Register(w); err != nil {
			return wrap("job registry", err)
		}
	}

	if opts.Queue {
		if err := a.wireQueue(); err != nil {
			return err
		}
	}

	deps := recommend.Deps{
		Products:  a.Stores.Products,
		Neighbors: a.Stores.Edges,
		Vectors:   a.Stores.Vectors,
		Embedder:  a.Embedder,
		Queue:     a.Queue,
		Sink:      a.Sink,
		Log:       a.Log,
	}
	orch, err := recommend.NewOrchestrator(deps, recommend.Options{
		Gate:           recommend.GateFromConfig(cfg.Recommend),
		DefaultTopK:    cfg.Recommend.DefaultTopK,
		MaxTopK:        cfg.Recommend.MaxTopK,
		JobTimeout:     cfg.Queue.JobTimeout.Duration,
		LLMModel:       cfg.LLM.Model,
		SystemPromptID: prompts.SystemID,
		UserPromptID:   prompts.UserID,
	})
	if err != nil {
		return wrap("query orchestrator", err)
	}
	a.Recommender = orch
	return nil
}

func (a *App) wireQueue() error {
	cfg := a.Cfg
	switch {
	case a.Redis != nil:
		q, err := redisq.NewQueue(a.Redis, cfg.Queue.Name, cfg.Queue.ResultTTL.Duration)
		if err != nil {
			return wrap("redis queue", err)
		}
		a.Queue = q
	case a.Temporal != nil:
		q, err := temporalq.NewQueue(a.Temporal, cfg.Temporal.TaskQueue)
		if err != nil {
			return wrap("temporal queue", err)
		}
		a.Queue = q
	default:
		return nil
	}
	a.Log.Info("inference queue ready", "backend", cfg.Queue.Backend)
	return nil
}

// queueName is what operators see for the active backend.
func queueName(cfg *config.Config) string {
	if cfg.Queue.Backend == config.BackendTemporal {
		return cfg.Temporal.TaskQueue
	}
	return cfg.Queue.Name
}
