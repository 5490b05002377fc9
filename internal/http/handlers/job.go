package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abdelatifsd/Adjacent/internal/http/middleware"
	"github.com/abdelatifsd/Adjacent/internal/http/response"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

type JobHandler struct {
	log  *logger.Logger
	recs Recommender
}

func NewJobHandler(log *logger.Logger, recs Recommender) *JobHandler {
	return &JobHandler{log: log.With("handler", "JobHandler"), recs: recs}
}

// GET /v1/jobs/:id
// An unknown id is a 200 with status not_found.
func (h *JobHandler) GetJob(c *gin.Context) {
	traceID := middleware.TraceID(c)
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		respondKind(c, h.log, errkind.InvalidInput("http.get_job", "job id is required"), traceID)
		return
	}
	info, err := h.recs.JobStatus(c.Request.Context(), jobID)
	if err != nil {
		respondKind(c, h.log, err, traceID)
		return
	}
	if info.JobID == "" {
		info.JobID = jobID
	}
	response.RespondOK(c, info)
}
