package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/emergency-backend/internal/api/dto"
	"github.com/spec-kit/emergency-backend/internal/auth"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter reports the number of stored records.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler responds to liveness, readiness and status probes.
type HealthHandler struct {
	serviceName  string
	version      string
	dependencies map[string]Pinger
	users        Counter
	projects     Counter
	clock        auth.Clock
}

// NewHealthHandler returns a new handler instance. dependencies maps a
// display name to the dependency pinged by Ready.
func NewHealthHandler(serviceName, version string, dependencies map[string]Pinger, users, projects Counter) *HealthHandler {
	return &HealthHandler{
		serviceName:  serviceName,
		version:      version,
		dependencies: dependencies,
		users:        users,
		projects:     projects,
		clock:        auth.SystemClock,
	}
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

	names := make([]string, 0, len(h.dependencies))
	for name := range h.dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	depStatus := fiber.Map{}
	ready := true
	for _, name := range names {
		if err := h.dependencies[name].Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
		} else {
			depStatus[name] = "ok"
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

// Status handles GET /api/status.
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	users, err := h.users.Count(c.UserContext())
	if err != nil {
		return err
	}
	projects, err := h.projects.Count(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.StatusResponse{
			Service:   h.serviceName,
			Version:   h.version,
			Users:     users,
			Projects:  projects,
			Timestamp: h.clock.Now().Unix(),
		},
	})
}
