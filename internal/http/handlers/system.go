package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdelatifsd/Adjacent/internal/data/graph"
	"github.com/abdelatifsd/Adjacent/internal/http/middleware"
	"github.com/abdelatifsd/Adjacent/internal/http/response"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

type GraphStatter interface {
	Stats(ctx context.Context) (graph.Stats, error)
}

// QueueInfo describes the configured job backend. Backlog is nil when the
// backend cannot report a queue length, and the whole value is zero when
// inference is disabled.
type QueueInfo struct {
	Backend string
	Name    string
	Backlog jobs.Backlog
}

type SystemHandler struct {
	log   *logger.Logger
	graph GraphStatter
	queue QueueInfo
}

func NewSystemHandler(log *logger.Logger, g GraphStatter, queue QueueInfo) *SystemHandler {
	return &SystemHandler{log: log.With("handler", "SystemHandler"), graph: g, queue: queue}
}

type vectorIndexStatus struct {
	Present bool    `json:"present"`
	State   *string `json:"state"`
	Name    *string `json:"name"`
}

type graphStatus struct {
	Connected         bool              `json:"connected"`
	ProductCount      int64             `json:"product_count"`
	InferredEdgeCount int64             `json:"inferred_edge_count"`
	VectorIndex       vectorIndexStatus `json:"vector_index"`
}

type inferenceStatus struct {
	Backend        string `json:"backend,omitempty"`
	QueueEnabled   bool   `json:"queue_enabled"`
	QueueConnected bool   `json:"queue_connected"`
	QueueName      string `json:"queue_name,omitempty"`
	PendingJobs    *int64 `json:"pending_jobs"`
}

type dynamicsStatus struct {
	GraphCoveragePct *float64 `json:"graph_coverage_pct"`
	Notes            []string `json:"notes"`
}

type SystemStatus struct {
	Status    string          `json:"status"`
	Neo4j     graphStatus     `json:"neo4j"`
	Inference inferenceStatus `json:"inference"`
	Dynamics  dynamicsStatus  `json:"dynamics"`
}

var dynamicsNotes = []string{
	"Cold start is expected: vector recommendations dominate until inference creates edges.",
	"Inferred edges and graph coverage grow as the worker runs.",
}

// GET /v1/system/status
// Neo4j is required; the queue degrades to connected=false.
func (h *SystemHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	traceID := middleware.TraceID(c)

	st, err := h.graph.Stats(ctx)
	if err != nil {
		h.log.Error("graph stats failed", "trace_id", traceID, "error", err)
		response.RespondError(c, http.StatusServiceUnavailable, "neo4j_unavailable", errUnavailable, traceID)
		return
	}

	out := SystemStatus{
		Status: "ok",
		Neo4j: graphStatus{
			Connected:         true,
			ProductCount:      st.ProductCount,
			InferredEdgeCount: st.EdgeCount,
		},
		Inference: inferenceStatus{
			Backend:      h.queue.Backend,
			QueueEnabled: h.queue.Backend != "",
			QueueName:    h.queue.Name,
		},
		Dynamics: dynamicsStatus{GraphCoveragePct: st.CoveragePct(), Notes: dynamicsNotes},
	}
	if st.VectorIndex.Present {
		name, state := st.VectorIndex.Name, st.VectorIndex.State
		out.Neo4j.VectorIndex = vectorIndexStatus{Present: true, Name: &name, State: &state}
	}

	if h.queue.Backlog != nil {
		n, err := h.queue.Backlog.Pending(ctx)
		if err != nil {
			h.log.Warn("queue backlog unavailable", "trace_id", traceID, "error", err)
		} else {
			out.Inference.QueueConnected = true
			out.Inference.PendingJobs = &n
		}
	} else if out.Inference.QueueEnabled {
		// Reachability was checked at startup.
		out.Inference.QueueConnected = true
	}
	response.RespondOK(c, out)
}
