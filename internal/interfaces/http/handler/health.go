package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/portal/internal/infrastructure/logger"
	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency, such as the record store database
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler reports liveness and the state of its checks
type HealthHandler struct {
	name      string
	startTime time.Time
	checks    []HealthCheck
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(name string, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{name: name, startTime: time.Now(), checks: checks}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Name      string            `json:"name"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health.
// Any failing check turns the response into a 503.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Name:      h.name,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		for _, check := range h.checks {
			if err := check.Check(ctx); err != nil {
				logger.GetGinLogger(c).Warn("Health check failed",
					zap.String("check", check.Name),
					zap.Error(err))
				resp.Checks[check.Name] = "error"
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[check.Name] = "ok"
		}
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
