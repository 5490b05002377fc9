package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/abdelatifsd/Adjacent/internal/http/response"
	"github.com/abdelatifsd/Adjacent/internal/jobs"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

var (
	errUnavailable = errors.New("service temporarily unavailable")
	errInternal    = errors.New("internal server error")
)

// publicError returns what the client may see. Details of 5xx failures are
// logged and replaced by a generic message.
func publicError(log *logger.Logger, err error, traceID string) error {
	switch errkind.KindOf(err) {
	case errkind.KindNotFound, errkind.KindInvalidInput:
		var ke *errkind.Error
		if errors.As(err, &ke) && ke.Message != "" {
			return errors.New(ke.Message)
		}
		return err
	case errkind.KindUnavailable:
		log.Warn("dependency unavailable", "trace_id", traceID, "error", err)
		return errUnavailable
	default:
		log.Error("request failed", "trace_id", traceID, "error", err)
		return errInternal
	}
}

func respondKind(c *gin.Context, log *logger.Logger, err error, traceID string) {
	response.RespondError(c, response.StatusFor(err), jobs.ErrorType(err), publicError(log, err, traceID), traceID)
}
