// handlers/reward_routes.go
package handlers

import (
	"habit-reward-system/middleware"
	"habit-reward-system/models"
	"habit-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, rewards *services.RewardService, challenges *services.ChallengeService) {
	// Secured routes require user context injected by the gateway.
	// The gateway forwards paths like /api/v1/rewards/s/rewards/apply -> /s/rewards/apply
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/rewards/apply", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			SourceType string `json:"source_type"`
			SourceID   string `json:"source_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		sourceType := models.SourceType(req.SourceType)
		if _, ok := models.TableForSource(sourceType); !ok || req.SourceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "source_type must be task, goal or event and source_id must be set",
			})
		}

		outcome, err := rewards.ApplyReward(userID, sourceType, req.SourceID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "reward application failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(outcomeResponse(outcome))
	})

	secured.Get("/challenges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		list, err := challenges.GetChallenges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get challenges",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"challenges": list})
	})

	secured.Post("/challenges/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		outcome, err := challenges.Claim(userID, c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "challenge claim failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(outcomeResponse(outcome))
	})

	secured.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prog, err := rewards.GetProgress(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get progress",
				"cause": err.Error(),
			})
		}
		return c.JSON(prog)
	})

	secured.Put("/user/title", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Title string `json:"title"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		prog, err := rewards.SetActiveTitle(userID, req.Title)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to set title",
				"cause": err.Error(),
			})
		}
		return c.JSON(prog)
	})
}

// outcomeResponse flattens a reward outcome into the wire shape shared by
// reward application and challenge claims.
func outcomeResponse(outcome *models.RewardOutcome) fiber.Map {
	resp := fiber.Map{
		"success":      true,
		"awarded":      outcome.Awarded,
		"xp":           outcome.XP,
		"coins":        outcome.Coins,
		"achievements": outcome.Achievements,
	}
	if outcome.Reason != "" {
		resp["reason"] = outcome.Reason
	}
	if outcome.Streak != nil {
		resp["streak"] = outcome.Streak
	}
	return resp
}
