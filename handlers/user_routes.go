// handlers/user_routes.go
package handlers

import (
	"quest-reward-service/middleware"
	"quest-reward-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService) {
	// 🔓 Public reads
	app.Get("/users/leaderboard", userService.GetLeaderboard)
	app.Get("/users/:wallet", userService.GetUserByWallet)
	app.Get("/users/:wallet/completions", userService.GetUserCompletions)
	app.Get("/users/:wallet/badges", userService.GetUserBadges)

	// 🔐 Own-profile writes
	secured := app.Group("/", middleware.WalletContextMiddleware())
	secured.Put("/me/profile", userService.UpdateProfile)
}
