// handlers/quest_routes.go
package handlers

import (
	"quest-reward-service/middleware"
	"quest-reward-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupQuestRoutes(app *fiber.App, questService *services.QuestService) {
	// 🔓 Public routes — no user context, but still behind Gateway auth
	app.Get("/quests", questService.GetActiveQuests)
	app.Get("/quests/:id", questService.GetQuestByID)

	// 🔐 Secured routes — require wallet context from the Gateway
	secured := app.Group("/", middleware.WalletContextMiddleware())

	secured.Get("/my/quests", questService.GetOwnerQuests)
	secured.Post("/quests", questService.CreateQuest)
	secured.Put("/quests/:id", questService.UpdateQuest)
	secured.Patch("/quests/:id/status", questService.UpdateQuestStatus)
	secured.Delete("/quests/:id", questService.DeleteQuest)
	secured.Post("/quests/:id/image", questService.UploadQuestImage)
}
