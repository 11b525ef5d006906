package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck - проверка одной зависимости (MongoDB/PostgreSQL, Redis)
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type HealthHandler struct {
	serviceName string
	checks      []HealthCheck
}

func NewHealthHandler(serviceName string, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, checks: checks}
}

// Health всегда отвечает 200, если процесс жив
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   h.serviceName,
		Timestamp: time.Now(),
	})
}

// Readiness проверяет зависимости, 503 если хотя бы одна недоступна
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	response := HealthResponse{
		Status:    "ok",
		Service:   h.serviceName,
		Checks:    make(map[string]string, len(h.checks)),
		Timestamp: time.Now(),
	}

	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			response.Checks[check.Name] = "unhealthy: " + err.Error()
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[check.Name] = "healthy"
	}

	c.JSON(status, response)
}
