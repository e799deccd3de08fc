package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"crm-updater/internal/manager"
	"crm-updater/internal/services/monitor"
	"crm-updater/internal/updater"
)

// UpdaterHandler serves the updater control plane. The manager is
// injected by the composition root rather than reached through a
// package singleton.
type UpdaterHandler struct {
	Mgr *manager.Manager
}

func NewUpdaterHandler(mgr *manager.Manager) *UpdaterHandler {
	return &UpdaterHandler{Mgr: mgr}
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC(),
	})
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success":   false,
		"error":     msg,
		"timestamp": time.Now().UTC(),
	})
}

// GetStatus returns the full status read model.
func (h *UpdaterHandler) GetStatus(c *fiber.Ctx) error {
	return ok(c, h.Mgr.Status())
}

// Start brings the scheduler up. Validation failures come back as 400
// with every violation listed.
func (h *UpdaterHandler) Start(c *fiber.Ctx) error {
	if err := h.Mgr.Start(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	return ok(c, fiber.Map{"message": "updater manager started"})
}

func (h *UpdaterHandler) Stop(c *fiber.Ctx) error {
	h.Mgr.Stop()
	return ok(c, fiber.Map{"message": "updater manager stopped"})
}

// Execute runs one updater immediately, bypassing its schedule.
func (h *UpdaterHandler) Execute(c *fiber.Ctx) error {
	name := c.Params("name")
	if _, known := updater.KindFromName(name); !known {
		return fail(c, fiber.StatusNotFound, "unknown updater: "+name)
	}
	result, err := h.Mgr.ExecuteUpdater(c.UserContext(), name)
	if err != nil {
		return fail(c, fiber.StatusNotFound, err.Error())
	}
	return ok(c, result)
}

// DryRun runs one updater with writes suppressed, returning the
// would-be records.
func (h *UpdaterHandler) DryRun(c *fiber.Ctx) error {
	name := c.Params("name")
	if _, known := updater.KindFromName(name); !known {
		return fail(c, fiber.StatusNotFound, "unknown updater: "+name)
	}
	result, err := h.Mgr.ExecuteUpdaterDryRun(c.UserContext(), name)
	if err != nil {
		return fail(c, fiber.StatusNotFound, err.Error())
	}
	return ok(c, result)
}

// UpdateConfig applies a partial configuration update; a running
// manager is restarted so schedules pick up the change.
func (h *UpdaterHandler) UpdateConfig(c *fiber.Ctx) error {
	var overrides updater.Overrides
	if err := c.BodyParser(&overrides); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid configuration body")
	}
	if err := h.Mgr.UpdateConfiguration(overrides); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	return ok(c, h.Mgr.Config())
}

// Toggle enables or disables one updater.
func (h *UpdaterHandler) Toggle(c *fiber.Ctx) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.Mgr.SetUpdaterEnabled(c.Params("name"), req.Enabled); err != nil {
		return fail(c, fiber.StatusNotFound, err.Error())
	}
	return ok(c, fiber.Map{"name": c.Params("name"), "enabled": req.Enabled})
}

// GetLogs returns the parsed tail of today's log file.
func (h *UpdaterHandler) GetLogs(c *fiber.Ctx) error {
	count := 50
	if v := c.Query("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fail(c, fiber.StatusBadRequest, "count must be a positive integer")
		}
		count = n
	}
	return ok(c, h.Mgr.RecentLogs(count))
}

// GetMetrics returns per-updater and aggregated metrics.
func (h *UpdaterHandler) GetMetrics(c *fiber.Ctx) error {
	perUpdater, agg := h.Mgr.Metrics()
	return ok(c, fiber.Map{
		"updaters":  perUpdater,
		"aggregate": agg,
	})
}

// Health reports liveness plus a host snapshot.
func (h *UpdaterHandler) Health(c *fiber.Ctx) error {
	return ok(c, fiber.Map{
		"status":  "healthy",
		"running": h.Mgr.IsRunning(),
		"system":  monitor.GetSystemStats(),
	})
}
