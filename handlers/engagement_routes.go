// handlers/engagement_routes.go
package handlers

import (
	"quest-reward-service/middleware"
	"quest-reward-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEngagementRoutes(app *fiber.App, checkinService *services.CheckinService, stakeService *services.StakeService) {
	// 🔓 Public reads
	app.Get("/checkins/:wallet/streak", checkinService.GetStreak)
	app.Get("/stakes/:wallet", stakeService.GetStakes)

	// 🔐 Secured writes — require wallet context from the Gateway
	secured := app.Group("/", middleware.WalletContextMiddleware())

	secured.Post("/checkins", checkinService.CheckIn)
	secured.Post("/stakes", stakeService.Stake)
	secured.Post("/stakes/:id/unstake", stakeService.Unstake)
}
