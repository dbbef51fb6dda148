package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tinytelemetry/logsearch/internal/admin"
	"github.com/tinytelemetry/logsearch/internal/model"
)

// requestError marks input the client must fix.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// statusFor maps an error to the response status.
func statusFor(err error) int {
	var re *requestError
	switch {
	case errors.As(err, &re), admin.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotConfigured), errors.Is(err, model.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, model.ErrWarehouseNotFound), errors.Is(err, model.ErrServiceNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// respondError writes {"error": ...} and logs upstream failures.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		s.loggerFrom(c).Warn("upstream call failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// describeError is the message shown on a page panel.
func describeError(err error) string {
	switch {
	case errors.Is(err, model.ErrNotConfigured):
		return "Not configured for this backend."
	case errors.Is(err, model.ErrUnsupported):
		return "Not supported by this backend."
	default:
		return err.Error()
	}
}
