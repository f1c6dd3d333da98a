package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bounty-board-backend/handlers"
	"bounty-board-backend/middleware"
	"bounty-board-backend/models"
	"bounty-board-backend/services"
	"bounty-board-backend/utils"
	"bounty-board-backend/workers"

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
		BodyLimit: 1 * 1024 * 1024, // webhook payloads and JSON bodies only
	})

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
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
		&models.User{},
		&models.Bounty{},
		&models.BountySubmission{},
		&models.BotInstallation{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- Identity provider (token verification + profile sync) ---
	identityURL := os.Getenv("IDENTITY_SERVICE_URL")
	if identityURL == "" {
		log.Fatal("IDENTITY_SERVICE_URL environment variable not set")
	}
	identityAppID := os.Getenv("IDENTITY_APP_ID")
	identityAppSecret := os.Getenv("IDENTITY_APP_SECRET")
	if identityAppSecret == "" {
		log.Fatal("IDENTITY_APP_SECRET environment variable not set")
	}
	identity := services.NewIdentityClient(identityURL, identityAppID, identityAppSecret)

	// --- Webhook signature config ---
	signatureMode := services.ParseSignatureMode(os.Getenv("WEBHOOK_SIGNATURE_MODE"))
	webhookSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	if webhookSecret == "" && signatureMode == services.SignatureModeStrict {
		log.Fatal("GITHUB_WEBHOOK_SECRET environment variable not set (required in strict signature mode)")
	}
	if signatureMode == services.SignatureModePermissive {
		log.Println("⚠️  Webhook signature mode is PERMISSIVE — failed verifications are logged, not rejected. Do not run this in production.")
	}

	githubToken := os.Getenv("GITHUB_TOKEN")
	if githubToken == "" {
		log.Println("⚠️  GITHUB_TOKEN not set — label annotation and authenticated proxy calls will fail")
	}
	githubClient := utils.NewGitHubClient(githubToken)

	bountyService := services.NewBountyService(db)
	submissionService := services.NewSubmissionService(db)
	installationService := services.NewInstallationService(db)
	userService := services.NewUserService(db)
	githubService := services.NewGitHubService(githubClient)
	webhookService := services.NewWebhookService(db, webhookSecret, signatureMode, githubClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewUserProfileSyncWorker(db, identity)
	syncWorker.Start(ctx)

	bountyService.StartExpiryScheduler()

	auth := middleware.UserContextMiddleware(identity, db)
	handlers.SetupWebhookRoutes(app, webhookService)
	handlers.SetupBountyRoutes(app, bountyService, submissionService, userService, auth)
	handlers.SetupGitHubRoutes(app, githubService, installationService, auth)

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
	log.Println("✅ Bounty expiry scheduler running (every 1m)")
	log.Println("✅ User profile sync worker running")
	log.Printf("✅ Webhook signature mode: %s", signatureMode)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
