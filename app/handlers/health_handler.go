package handlers

import (
	"context"
	"time"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/gofiber/fiber/v3"
)

const healthCheckTimeout = 3 * time.Second

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness plus the state of each registered dependency
type HealthHandler struct {
	service string
	version string
	checks  map[string]HealthCheck
}

func NewHealthHandler(service, version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{service: service, version: version, checks: checks}
}

// Health returns 200 when every check passes and 503 otherwise
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(dto.APIResponse{
		Success: status == "ok",
		Message: "Service is " + status,
		Data: fiber.Map{
			"status":     status,
			"service":    h.service,
			"version":    h.version,
			"timestamp":  utils.UTCNow().Unix(),
			"components": components,
		},
	})
}
