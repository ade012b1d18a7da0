package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"quest-reward-service/handlers"
	"quest-reward-service/middleware"
	"quest-reward-service/models"
	"quest-reward-service/services"
	"quest-reward-service/utils"
	"quest-reward-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // quest images only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-Wallet",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Quest{},
		&models.User{},
		&models.QuestCompletion{},
		&models.Badge{},
		&models.Stake{},
		&models.DailyCheckin{},
		&models.Notification{},
		&models.PendingSettlement{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// R2 is optional: without credentials quest images land in ./uploads.
	if os.Getenv("R2_ACCESS_KEY_ID") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		log.Println("✅ R2 image storage enabled")
	}
	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	cfg := services.LoadPlatformConfig()

	settler, err := services.NewEVMSettlerFromEnv()
	if err != nil {
		log.Fatal("failed to initialize settlement client:", err)
	}
	var chainSettler services.ChainSettler
	if settler != nil {
		chainSettler = settler
		log.Println("✅ On-chain settlement enabled")
	} else {
		log.Println("⚠️  SETTLEMENT_RPC_URL not set — contract-backed quests will be rejected")
	}

	var notifier services.Notifier = services.NewDBNotifier(db)
	if webhookURL := os.Getenv("NOTIFY_WEBHOOK_URL"); webhookURL != "" {
		notifier = services.NewWebhookNotifier(notifier, webhookURL)
	}

	settlementService := services.NewSettlementService(db, cfg, chainSettler, notifier)
	questService := services.NewQuestService(db, cfg, chainSettler)
	userService := services.NewUserService(db, settlementService.Badges)
	checkinService := services.NewCheckinService(db)
	stakeService := services.NewStakeService(db)

	reconciler := workers.NewSettlementReconciler(db, settlementService)
	reconciler.Start()
	defer reconciler.Stop()

	// ✅ Setup routes — all behind enforced Gateway auth
	handlers.SetupClaimRoutes(app, settlementService)
	handlers.SetupQuestRoutes(app, questService)
	handlers.SetupUserRoutes(app, userService)
	handlers.SetupEngagementRoutes(app, checkinService, stakeService)

	app.Static("/uploads", "./uploads")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Settlement Reconciler running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
