package guard

import (
	"backend-spothitch/internal/battery"
	"backend-spothitch/internal/contact"
	"backend-spothitch/internal/positionlog"

	"github.com/gofiber/fiber/v2"
)

type startRequest struct {
	Guardian        contact.Contact `json:"guardian"`
	IntervalMinutes int             `json:"interval_minutes"`
	Options
}

type positionRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type batteryRequest struct {
	Level float64 `json:"level"`
}

// RegisterRoutes exposes the scheduler surface. The position and battery
// report endpoints also feed the production provider adapters.
func RegisterRoutes(r fiber.Router, mgr *Manager, positions *ReportedProvider, batteryReports *battery.ReportProvider, authMiddleware fiber.Handler) {
	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		var req startRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := mgr.Start(c.Context(), req.Guardian, req.IntervalMinutes, req.Options); err != nil {
			switch err {
			case ErrTripActive:
				return fiber.NewError(fiber.StatusConflict, err.Error())
			case ErrGuardianPhone:
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			default:
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
		}
		return c.Status(fiber.StatusCreated).JSON(mgr.State())
	})

	r.Post("/checkin", authMiddleware, func(c *fiber.Ctx) error {
		applied := mgr.CheckIn(c.Context())
		return c.JSON(fiber.Map{"applied": applied, "state": mgr.State()})
	})

	r.Post("/stop", authMiddleware, func(c *fiber.Ctx) error {
		var opts StopOptions
		_ = c.BodyParser(&opts)
		mgr.Stop(c.Context(), opts)
		return c.JSON(mgr.State())
	})

	r.Post("/alert", authMiddleware, func(c *fiber.Ctx) error {
		count, ok := mgr.SendAlert(c.Context())
		return c.JSON(fiber.Map{"recipients": count, "sent": ok})
	})

	r.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(mgr.State())
	})

	r.Get("/countdown", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"remaining_seconds": mgr.TimeUntilNextCheckIn(),
			"overdue":           mgr.IsOverdue(),
		})
	})

	r.Post("/positions", authMiddleware, func(c *fiber.Ctx) error {
		var req positionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if positions != nil {
			positions.Report(req.Lat, req.Lng)
		}
		mgr.AddPosition(req.Lat, req.Lng)
		snap := mgr.State()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"count": snap.Session.Positions.Len()})
	})

	r.Get("/positions", func(c *fiber.Ctx) error {
		snap := mgr.State()
		return c.JSON(snap.Session.Positions.Fixes())
	})

	r.Get("/eta", func(c *fiber.Ctx) error {
		var dest *positionlog.Destination
		if c.Query("lat") != "" && c.Query("lng") != "" {
			dest = &positionlog.Destination{Lat: c.QueryFloat("lat"), Lng: c.QueryFloat("lng")}
		}
		return c.JSON(mgr.ETAInfo(dest))
	})

	r.Post("/battery", authMiddleware, func(c *fiber.Ctx) error {
		var req batteryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if batteryReports != nil {
			batteryReports.Report(req.Level)
		}
		return c.JSON(fiber.Map{"level": req.Level})
	})
}
