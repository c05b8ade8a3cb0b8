package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wizqueue/internal/logging"
)

const healthCheckTimeout = 5 * time.Second

type healthReport struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

func (s *Server) handleHealth(c *gin.Context) {
	report := healthReport{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services: map[string]string{
			"database": s.check(c.Request.Context(), "database", s.deps.DB),
			"ollama":   s.check(c.Request.Context(), "ollama", s.deps.Model),
		},
	}
	status := http.StatusOK
	for _, state := range report.Services {
		if state != "connected" {
			report.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, report)
}

type checkFunc func(context.Context) error

func (s *Server) check(parent context.Context, name string, target any) string {
	var fn checkFunc
	switch t := target.(type) {
	case Pinger:
		fn = t.Ping
	case HealthChecker:
		fn = t.HealthCheck
	}
	if fn == nil {
		return "disconnected"
	}
	ctx, cancel := context.WithTimeout(parent, healthCheckTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Warn("health check failed", logging.String("service", name), logging.Error(err))
		return "disconnected"
	}
	return "connected"
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "WizQueue API",
		"version":     Version,
		"description": "3D Printing Queue Generator API",
		"endpoints": gin.H{
			"health":     "/health",
			"queue":      "/api/queue",
			"upload":     "/api/upload",
			"processing": "/api/processing",
		},
	})
}
