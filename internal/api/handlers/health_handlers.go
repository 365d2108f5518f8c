package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/rail-service/usdc-bridge/pkg/logger"
)

// ReadinessCheck reports whether one dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks    map[string]ReadinessCheck
	timeout   time.Duration
	logger    *logger.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checks map[string]ReadinessCheck, logger *logger.Logger, version string) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		timeout:   3 * time.Second,
		logger:    logger,
		version:   version,
		startTime: time.Now(),
	}
}

// Liveness handles GET /health
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.version,
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Readiness handles GET /ready. Checks run concurrently under a shared timeout.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}

	outcomes := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			outcomes[i] = check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	status, code := "ready", http.StatusOK
	for i, name := range names {
		if outcomes[i] != nil {
			results[name] = outcomes[i].Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	if code != http.StatusOK {
		h.logger.Warn("Readiness check failed", "checks", results)
	}

	c.JSON(code, gin.H{
		"status":    status,
		"checks":    results,
		"timestamp": time.Now().UTC(),
	})
}
