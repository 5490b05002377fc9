package app

import (
	"context"
	"errors"

	apphttp "github.com/abdelatifsd/Adjacent/internal/http"
	httpH "github.com/abdelatifsd/Adjacent/internal/http/handlers"
	"github.com/abdelatifsd/Adjacent/internal/ingest"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/jobs/redisq"
	"github.com/abdelatifsd/Adjacent/internal/jobs/temporalq"
)

var ErrInferenceDisabled = errors.New("inference is disabled: set OPENAI_API_KEY")

func (a *App) HTTPServer() *apphttp.Server {
	cfg := a.Cfg
	qinfo := httpH.QueueInfo{}
	if a.Queue != nil {
		qinfo.Backend = cfg.Queue.Backend
		qinfo.Name = queueName(cfg)
		if b, ok := a.Queue.(jobs.Backlog); ok {
			qinfo.Backlog = b
		}
	}
	return apphttp.NewServer(cfg.HTTP, a.Log, apphttp.RouterConfig{
		Log:           a.Log,
		ServiceName:   cfg.Observability.ServiceName,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		Metrics:       a.Metrics,
		HealthHandler: httpH.NewHealthHandler(),
		QueryHandler:  httpH.NewQueryHandler(a.Log, a.Recommender),
		JobHandler:    httpH.NewJobHandler(a.Log, a.Recommender),
		SystemHandler: httpH.NewSystemHandler(a.Log, a.Stores.Products, qinfo),
	})
}

// RunWorker consumes inference jobs until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	if a.Inferencer == nil {
		return ErrInferenceDisabled
	}
	cfg := a.Cfg
	switch {
	case a.Redis != nil:
		c := redisq.NewConsumer(a.Redis, cfg.Queue.Name, a.Registry, a.Log, redisq.ConsumerOptions{
			Concurrency:    cfg.Queue.Concurrency,
			PollTimeout:    cfg.Queue.PollTimeout.Duration,
			DefaultTimeout: cfg.Queue.JobTimeout.Duration,
			ResultTTL:      cfg.Queue.ResultTTL.Duration,
		})
		return c.Run(ctx)
	case a.Temporal != nil:
		r, err := temporalq.NewRunner(a.Log, a.Temporal, cfg.Temporal, a.Registry, cfg.Queue.Concurrency)
		if err != nil {
			return err
		}
		return r.Run(ctx)
	default:
		return errors.New("no job backend connected")
	}
}

func (a *App) Ingester() (*ingest.Ingester, error) {
	return ingest.NewIngester(a.Stores.Products, a.Log)
}

func (a *App) Backfiller() (*ingest.Backfiller, error) {
	if a.Embedder == nil {
		return nil, errors.New("embedding backfill needs OPENAI_API_KEY")
	}
	return ingest.NewBackfiller(a.Stores.Products, a.Stores.Vectors, a.Embedder, a.Log)
}
