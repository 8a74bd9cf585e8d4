// handlers/bonus_routes.go
package handlers

import (
	"errors"

	"invest-engine/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func SetupBonusRoutes(app *fiber.App, bonusService *services.BonusService, reportService *services.ReportService) {
	group := app.Group("/s/admin/bonuses")

	// Admin grants a bonus credit. The operator identity comes from the
	// gateway, already authenticated upstream.
	group.Post("/", func(c *fiber.Ctx) error {
		var req struct {
			UserID        string  `json:"user_id"`
			Amount        string  `json:"amount"`
			Reason        string  `json:"reason"`
			GrantedBy     string  `json:"granted_by"`
			CapMultiplier *string `json:"cap_multiplier"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.Reason == "" || req.GrantedBy == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason and granted_by are required"})
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid amount"})
		}

		var capMultiplier *decimal.Decimal
		if req.CapMultiplier != nil {
			m, err := decimal.NewFromString(*req.CapMultiplier)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid cap_multiplier"})
			}
			capMultiplier = &m
		}

		bonus, err := bonusService.GrantBonus(req.UserID, amount, req.Reason, req.GrantedBy, capMultiplier)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNonPositiveBonus):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrBonusUserNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to grant bonus"})
			}
		}
		return c.Status(fiber.StatusCreated).JSON(bonus)
	})

	group.Post("/:id/cancel", func(c *fiber.Ctx) error {
		var req struct {
			CancelledBy string `json:"cancelled_by"`
			Reason      string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.CancelledBy == "" || req.Reason == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cancelled_by and reason are required"})
		}

		err := bonusService.CancelBonus(c.Params("id"), req.CancelledBy, req.Reason)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrBonusNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrAlreadyInactive):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to cancel bonus"})
			}
		}
		return c.JSON(fiber.Map{"message": "bonus cancelled"})
	})

	group.Get("/user/:userId", func(c *fiber.Ctx) error {
		bonuses, err := bonusService.GetUserBonuses(c.Params("userId"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch bonuses"})
		}
		stats, err := bonusService.GetUserBonusStats(c.Params("userId"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch bonus stats"})
		}
		return c.JSON(fiber.Map{"bonuses": bonuses, "stats": stats})
	})

	// Snapshot report of all deposits, archived to R2.
	app.Post("/s/admin/reports/deposits", func(c *fiber.Ctx) error {
		url, err := reportService.GenerateDepositReport(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate report"})
		}
		return c.JSON(fiber.Map{"report_url": url})
	})
}
