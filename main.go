package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"guild-bot-system/handlers"
	"guild-bot-system/middleware"
	"guild-bot-system/models"
	"guild-bot-system/services"
	"guild-bot-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	gatewayURL := os.Getenv("GATEWAY_BASE_URL")
	if gatewayURL == "" {
		log.Fatal("GATEWAY_BASE_URL environment variable not set")
	}
	serviceToken := os.Getenv("BOT_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("BOT_SERVICE_TOKEN environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.UserProgression{},
		&models.EconomyAccount{},
		&models.LootSession{},
		&models.LootItem{},
		&models.SessionParticipant{},
		&models.LootRecord{},
		&models.ScheduledEvent{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	progressionService := services.NewProgressionService(db)
	economyService := services.NewEconomyService(db)
	lootService := services.NewLootService(db)
	eventService := services.NewEventService(db)

	notifier := services.NewGatewayNotifier(gatewayURL, serviceToken)
	roleClient := services.NewRoleClient(gatewayURL, serviceToken)

	app := fiber.New()

	// Only the bot gateway may talk to this service.
	app.Use(middleware.GatewayAuthMiddleware())
	app.Use(cors.New())

	handlers.SetupProgressionRoutes(app, progressionService, economyService, roleClient)
	handlers.SetupEconomyRoutes(app, economyService)
	handlers.SetupLootRoutes(app, lootService)
	handlers.SetupEventRoutes(app, eventService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The notifier must not fire before the service is accepting traffic and
	// the gateway clients exist; the ready gate closes once the listener is up.
	ready := make(chan struct{})
	eventNotifier := workers.NewEventNotifier(eventService, notifier)
	if err := eventNotifier.Start(ctx, ready); err != nil {
		log.Fatal("failed to start event notifier:", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()
	close(ready)

	log.Printf("Server running on http://localhost:%s", port)
	log.Println("Event notifier scheduled (every 5m)")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
