package handlers

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abdelatifsd/Adjacent/internal/http/middleware"
	"github.com/abdelatifsd/Adjacent/internal/http/response"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
	"github.com/abdelatifsd/Adjacent/internal/recommend"
)

// Recommender is the query surface of the orchestrator.
type Recommender interface {
	Query(ctx context.Context, req recommend.Request) (*recommend.QueryResult, error)
	JobStatus(ctx context.Context, jobID string) (jobs.JobInfo, error)
	MaxTopK() int
}

type QueryHandler struct {
	log  *logger.Logger
	recs Recommender
}

func NewQueryHandler(log *logger.Logger, recs Recommender) *QueryHandler {
	return &QueryHandler{log: log.With("handler", "QueryHandler"), recs: recs}
}

// GET /v1/query/:id
func (h *QueryHandler) Query(c *gin.Context) {
	traceID := middleware.TraceID(c)
	res, err := h.run(c, traceID)
	if err != nil {
		respondKind(c, h.log, err, traceID)
		return
	}
	response.RespondOK(c, res)
}

type timedResult struct {
	*recommend.QueryResult
	RequestTotalMS float64 `json:"request_total_ms"`
}

// GET /v1/perf/query/:id
func (h *QueryHandler) PerfQuery(c *gin.Context) {
	start := time.Now()
	traceID := middleware.TraceID(c)
	res, err := h.run(c, traceID)
	ms := elapsedMS(start)
	if err != nil {
		body := response.NewErrorBody(jobs.ErrorType(err), publicError(h.log, err, traceID), traceID)
		body.RequestTotalMS = &ms
		c.JSON(response.StatusFor(err), body)
		return
	}
	response.RespondOK(c, timedResult{QueryResult: res, RequestTotalMS: ms})
}

func (h *QueryHandler) run(c *gin.Context, traceID string) (*recommend.QueryResult, error) {
	req, err := h.parse(c)
	if err != nil {
		return nil, err
	}
	req.TraceID = traceID
	return h.recs.Query(c.Request.Context(), req)
}

func (h *QueryHandler) parse(c *gin.Context) (recommend.Request, error) {
	const op = "http.query"
	req := recommend.Request{AnchorID: strings.TrimSpace(c.Param("id"))}
	if raw, ok := c.GetQuery("top_k"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 1 || n > h.recs.MaxTopK() {
			return req, errkind.InvalidInput(op, fmt.Sprintf("top_k must be an integer between 1 and %d", h.recs.MaxTopK()))
		}
		req.TopK = n
	}
	if raw, ok := c.GetQuery("skip_inference"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return req, errkind.InvalidInput(op, "skip_inference must be a boolean")
		}
		req.SkipInference = b
	}
	return req, nil
}

func elapsedMS(start time.Time) float64 {
	return math.Round(float64(time.Since(start).Microseconds())/10) / 100
}
