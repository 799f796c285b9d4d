package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	depOK          = "ok"
	depUnavailable = "unavailable"
)

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
// Only postgres gates readiness; redis is reported but never fails the probe.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    Pinger
	redis       Pinger
	logger      *zap.Logger
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, logger *zap.Logger, postgres, redis Pinger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis, logger: logger}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := h.check(ctx, "postgres", h.postgres, depStatus)
	h.check(ctx, "redis", h.redis, depStatus)

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

// check pings dep and records its status. A nil dependency is skipped and counts as healthy.
func (h *HealthHandler) check(ctx context.Context, name string, dep Pinger, status fiber.Map) bool {
	if dep == nil {
		return true
	}
	if err := dep.Ping(ctx); err != nil {
		h.logger.Warn("dependency unavailable", zap.String("dependency", name), zap.Error(err))
		status[name] = depUnavailable
		return false
	}
	status[name] = depOK
	return true
}
