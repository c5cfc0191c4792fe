package history

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, archive Archiver, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		records, err := archive.List(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if records == nil {
			records = []Record{}
		}
		return c.JSON(records)
	})

	r.Delete("/", authMiddleware, func(c *fiber.Ctx) error {
		if err := archive.Clear(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
