package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

type ErrorBody struct {
	Error     string `json:"error"`
	TraceID   string `json:"trace_id,omitempty"`
	ErrorType string `json:"error_type"`
	// Set only by timing endpoints.
	RequestTotalMS *float64 `json:"request_total_ms,omitempty"`
}

func RespondError(c *gin.Context, status int, errorType string, err error, traceID string) {
	c.JSON(status, NewErrorBody(errorType, err, traceID))
}

func NewErrorBody(errorType string, err error, traceID string) ErrorBody {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ErrorBody{Error: msg, TraceID: traceID, ErrorType: errorType}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch errkind.KindOf(err) {
	case errkind.KindNotFound:
		return http.StatusNotFound
	case errkind.KindInvalidInput:
		return http.StatusBadRequest
	case errkind.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
