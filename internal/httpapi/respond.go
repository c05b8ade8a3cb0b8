package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wizqueue/internal/logging"
	"wizqueue/internal/services"
)

const genericErrorMessage = "An error occurred"

// Envelope wraps every /api response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondOK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

func respondFail(c *gin.Context, status int, errText, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: errText, Message: message})
}

// respondError maps a domain error to a status code and envelope.
func (s *Server) respondError(c *gin.Context, err error) {
	status, errText, message := s.classify(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logging.WithContext(c.Request.Context(), s.logger).Error("request failed",
			logging.String("path", c.Request.URL.Path),
			logging.Error(err),
		)
	}
	respondFail(c, status, errText, message)
}

func (s *Server) classify(err error) (int, string, string) {
	detail := services.Detail(err)
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, detail, ""
	case errors.Is(err, services.ErrConstraint):
		return http.StatusBadRequest, "Database constraint violation", detail
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Resource not found", detail
	case errors.Is(err, services.ErrUnavailable):
		return http.StatusServiceUnavailable, "Service unavailable", detail
	default:
		message := err.Error()
		if s.cfg.IsProduction() {
			message = genericErrorMessage
		}
		return http.StatusInternalServerError, "Internal server error", message
	}
}
