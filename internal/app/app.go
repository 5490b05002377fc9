// Package app wires configuration, clients, stores and services into the
// processes the CLI starts: the HTTP API, the inference worker and the
// catalog tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/openai/openai-go"
	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/embedding"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/llm"
	"github.com/abdelatifsd/Adjacent/internal/observability"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
	"github.com/abdelatifsd/Adjacent/internal/platform/neo4jdb"
	"github.com/abdelatifsd/Adjacent/internal/recommend"
)

// Options selects which parts of the graph of dependencies New builds.
type Options struct {
	// Queue connects the job backend. Catalog tools leave it off.
	Queue bool
	// Stdio keeps stdout free for a protocol stream.
	Stdio bool
}

type App struct {
	Cfg     *config.Config
	Log     *logger.Logger
	Metrics *observability.Metrics
	Sink    observability.Sink

	Neo4j    *neo4jdb.Client
	Redis    *goredis.Client
	Temporal temporalsdkclient.Client
	OpenAI   *openai.Client

	Stores     Stores
	Embedder   embedding.Provider
	Inferencer llm.EdgeInferencer
	Prompts    llm.Prompts

	Queue       jobs.Queue
	Registry    *jobs.Registry
	Recommender *recommend.Orchestrator

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	if cfg == nil || log == nil {
		return nil, errors.New("app: config and logger are required")
	}
	a := &App{Cfg: cfg, Log: log}

	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Observability.Version,
		TraceWriter: traceWriter(opts),
	})
	a.Sink, a.Metrics = wireSink(cfg.Observability, log)

	log.Info("Wiring clients...")
	if err := a.wireClients(ctx, opts); err != nil {
		a.Close(ctx)
		return nil, err
	}

	log.Info("Wiring stores...")
	stores, err := wireStores(a.Neo4j, cfg.Neo4j)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Stores = stores

	log.Info("Wiring services...")
	if err := a.wireServices(ctx, opts); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Temporal != nil {
		a.Temporal.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Neo4j != nil {
		if err := a.Neo4j.Close(ctx); err != nil {
			a.Log.Warn("neo4j close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}

func wireSink(cfg config.ObservabilityConfig, log *logger.Logger) (observability.Sink, *observability.Metrics) {
	var sinks observability.Multi
	if cfg.LogSpans {
		sinks = append(sinks, observability.NewLogSink(log))
	}
	if observability.OTelActive() {
		sinks = append(sinks, observability.NewOTelSink(nil))
	}
	var metrics *observability.Metrics
	if cfg.Metrics {
		metrics = observability.NewMetrics()
		sinks = append(sinks, metrics)
	}
	if len(sinks) == 0 {
		return observability.Nop{}, metrics
	}
	return sinks, metrics
}

func wrap(what string, err error) error {
	return fmt.Errorf("init %s: %w", what, err)
}

func traceWriter(opts Options) io.Writer {
	if opts.Stdio {
		return os.Stderr
	}
	return nil
}
