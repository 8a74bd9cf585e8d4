package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"invest-engine/handlers"
	"invest-engine/middleware"
	"invest-engine/models"
	"invest-engine/services"
	"invest-engine/utils"
	"invest-engine/workers"

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

	app := fiber.New(fiber.Config{})

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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.PlatformUser{},
		&models.Referral{},
		&models.ReferralEarning{},
		&models.Deposit{},
		&models.BonusCredit{},
		&models.RewardNotification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	validator := services.NewDepositValidationService(db, services.DefaultTierTable)
	rewardProcessor := services.NewRewardProcessor(db, services.DefaultRewardConfig)
	accrualService := services.NewAccrualService(db, services.DefaultAccrualConfig, rewardProcessor, validator)
	depositService := services.NewDepositService(db, validator, accrualService, rewardProcessor)
	bonusService := services.NewBonusService(db, accrualService)
	referralService := services.NewReferralService(db)
	reportService := services.NewReportService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifyClient := workers.NewNotifyClient(db)
	go workers.PollNotifications(ctx, notifyClient, 10*time.Second)

	accrualService.StartAccrualScheduler(1 * time.Minute)

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupReferralRoutes(app, referralService)
	handlers.SetupDepositRoutes(app, depositService, validator)
	handlers.SetupBonusRoutes(app, bonusService, reportService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Accrual scheduler running (polls every 1m)")
	log.Println("✅ Reward notification polling running (every 10s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
