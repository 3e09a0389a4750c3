package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "GlucoPlot/pkg/http"
	xlogger "GlucoPlot/pkg/logger"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthEchoHandler reports dependency status on /healthz.
type HealthEchoHandler struct {
	logger  *xlogger.Logger
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthEchoHandler(logger *xlogger.Logger, checks map[string]HealthCheck) *HealthEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &HealthEchoHandler{logger: logger, checks: checks, timeout: 3 * time.Second}
}

func (h *HealthEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

func (h *HealthEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", xlogger.String("check", name), xlogger.Error(err))
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}
