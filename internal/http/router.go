package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/abdelatifsd/Adjacent/internal/http/handlers"
	httpMW "github.com/abdelatifsd/Adjacent/internal/http/middleware"
	"github.com/abdelatifsd/Adjacent/internal/observability"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	// Metrics is nil when /metrics is disabled.
	Metrics *observability.Metrics

	HealthHandler *httpH.HealthHandler
	QueryHandler  *httpH.QueryHandler
	JobHandler    *httpH.JobHandler
	SystemHandler *httpH.SystemHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	v1 := r.Group("/v1")
	{
		// Query
		if cfg.QueryHandler != nil {
			v1.GET("/query/:id", cfg.QueryHandler.Query)
			v1.GET("/perf/query/:id", cfg.QueryHandler.PerfQuery)
		}

		// Job
		if cfg.JobHandler != nil {
			v1.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}

		// System
		if cfg.SystemHandler != nil {
			v1.GET("/system/status", cfg.SystemHandler.Status)
		}
	}

	return r
}
