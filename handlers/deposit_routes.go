// handlers/deposit_routes.go
package handlers

import (
	"errors"

	"invest-engine/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func SetupDepositRoutes(app *fiber.App, depositService *services.DepositService, validator *services.DepositValidationService) {
	group := app.Group("/s/deposits")

	// Tier availability projection for the purchase menu.
	group.Get("/:userId/tiers", func(c *fiber.Ctx) error {
		tiers, err := validator.AvailableTiers(c.Params("userId"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute tier availability"})
		}
		return c.JSON(fiber.Map{"tiers": tiers})
	})

	// Pre-purchase check; the purchase flow calls this before showing the
	// payment address.
	group.Get("/:userId/can-purchase/:tier", func(c *fiber.Ctx) error {
		err := validator.CanPurchase(c.Params("userId"), services.TierType(c.Params("tier")))
		if err != nil {
			if eligibilityStatus(err) != 0 {
				return c.Status(eligibilityStatus(err)).JSON(fiber.Map{"allowed": false, "reason": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "eligibility check failed"})
		}
		return c.JSON(fiber.Map{"allowed": true})
	})

	group.Post("/", func(c *fiber.Ctx) error {
		var req struct {
			UserID string  `json:"user_id"`
			Tier   string  `json:"tier"`
			Amount string  `json:"amount"`
			TxHash *string `json:"tx_hash"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid amount"})
		}

		deposit, err := depositService.CreateDeposit(req.UserID, services.TierType(req.Tier), amount, req.TxHash)
		if err != nil {
			if status := eligibilityStatus(err); status != 0 {
				return c.Status(status).JSON(fiber.Map{"error": err.Error()})
			}
			if errors.Is(err, services.ErrDuplicateTxHash) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create deposit"})
		}
		return c.Status(fiber.StatusCreated).JSON(deposit)
	})

	// Called by the wallet-scanning collaborator once the funding transaction
	// is final. Starts the accrual and pays referral rewards atomically.
	group.Post("/:id/confirm", func(c *fiber.Ctx) error {
		deposit, rewards, err := depositService.ConfirmDeposit(c.Params("id"))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrDepositNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrDepositNotPending):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to confirm deposit"})
			}
		}
		return c.JSON(fiber.Map{"deposit": deposit, "referral_rewards": rewards})
	})

	group.Get("/:userId", func(c *fiber.Ctx) error {
		deposits, err := depositService.GetUserDeposits(c.Params("userId"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch deposits"})
		}
		return c.JSON(deposits)
	})
}

// eligibilityStatus maps eligibility errors to HTTP codes; 0 means the error
// is not an eligibility outcome.
func eligibilityStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrUnknownTier):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrTierDisabled),
		errors.Is(err, services.ErrDuplicateTier),
		errors.Is(err, services.ErrOutOfOrder),
		errors.Is(err, services.ErrInsufficientPartners),
		errors.Is(err, services.ErrAmountOutsideCorridor):
		return fiber.StatusUnprocessableEntity
	}
	return 0
}
