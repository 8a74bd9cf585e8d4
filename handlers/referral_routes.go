// handlers/referral_routes.go
package handlers

import (
	"errors"

	"invest-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralService) {
	group := app.Group("/s/referrals")

	// Called once by the onboarding flow when a new user registers under a
	// referrer (directly by id or via an invite code).
	group.Post("/register", func(c *fiber.Ctx) error {
		var req struct {
			NewUserID    string `json:"new_user_id"`
			ReferrerID   string `json:"referrer_id"`
			ReferralCode string `json:"referral_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.NewUserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "new_user_id is required"})
		}

		referrerID := req.ReferrerID
		if referrerID == "" && req.ReferralCode != "" {
			owner, err := referralService.GetUserByReferralCode(req.ReferralCode)
			if err != nil {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "referral code not found"})
			}
			referrerID = owner.ID
		}
		if referrerID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "referrer_id or referral_code is required"})
		}

		if err := referralService.RegisterReferral(req.NewUserID, referrerID); err != nil {
			switch {
			case errors.Is(err, services.ErrSelfReferral),
				errors.Is(err, services.ErrReferralCycle):
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrReferrerNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to register referral"})
			}
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "referral chain recorded"})
	})

	// Per-level counts and earnings for the referral stats screen.
	group.Get("/:userId/stats", func(c *fiber.Ctx) error {
		stats, err := referralService.GetLevelStats(c.Params("userId"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load referral stats"})
		}
		return c.JSON(fiber.Map{"levels": stats})
	})

	group.Get("/:userId/code", func(c *fiber.Ctx) error {
		code, err := referralService.GetOrCreateReferralCode(c.Params("userId"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to issue referral code"})
		}
		return c.JSON(fiber.Map{"referral_code": code})
	})
}
