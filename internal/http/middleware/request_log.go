package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abdelatifsd/Adjacent/internal/platform/ctxutil"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

// RequestLogger emits one line per request. Routes are logged by template so
// product ids stay in their own field.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
			"bytes", c.Writer.Size(),
		}
		if id := c.Param("id"); id != "" {
			kv = append(kv, "id", id)
		}
		for _, q := range []string{"top_k", "skip_inference"} {
			if v, ok := c.GetQuery(q); ok {
				kv = append(kv, q, v)
			}
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			kv = append(kv, "trace_id", td.TraceID)
			if td.RequestID != "" {
				kv = append(kv, "request_id", td.RequestID)
			}
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("request served", kv...)
		case status >= 400:
			log.Warn("request served", kv...)
		default:
			log.Debug("request served", kv...)
		}
	}
}
