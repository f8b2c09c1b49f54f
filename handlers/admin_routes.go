// handlers/admin_routes.go
package handlers

import (
	"habit-reward-system/middleware"
	"habit-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, admin *services.AdminService) {
	group := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	group.Post("/users/:id/xp", func(c *fiber.Ctx) error {
		type Req struct {
			XP int64 `json:"xp"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		prog, err := admin.SetUserXP(c.Params("id"), req.XP)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to set xp",
				"cause": err.Error(),
			})
		}
		return c.JSON(prog)
	})

	group.Post("/users/:id/coins", func(c *fiber.Ctx) error {
		type Req struct {
			Coins int64 `json:"coins"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		prog, err := admin.SetUserCoins(c.Params("id"), req.Coins)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to set coins",
				"cause": err.Error(),
			})
		}
		return c.JSON(prog)
	})

	group.Post("/users/:id/level", func(c *fiber.Ctx) error {
		type Req struct {
			Level int `json:"level"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		prog, err := admin.SetUserLevel(c.Params("id"), req.Level)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to set level",
				"cause": err.Error(),
			})
		}
		return c.JSON(prog)
	})

	group.Post("/users/:id/reset", func(c *fiber.Ctx) error {
		prog, err := admin.ResetUserProgress(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to reset progress",
				"cause": err.Error(),
			})
		}
		return c.JSON(prog)
	})

	group.Post("/users/:id/premium", func(c *fiber.Ctx) error {
		type Req struct {
			IsPremium    bool `json:"is_premium"`
			DurationDays int  `json:"duration_days"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		prog, err := admin.SetPremiumStatus(c.Params("id"), req.IsPremium, req.DurationDays)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to set premium status",
				"cause": err.Error(),
			})
		}
		return c.JSON(prog)
	})
}
