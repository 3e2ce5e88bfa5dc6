package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/sitecrew-dev/sitecrew/db"
	"github.com/sitecrew-dev/sitecrew/internal/auth"
	"github.com/sitecrew-dev/sitecrew/internal/config"
	"github.com/sitecrew-dev/sitecrew/internal/handlers"
	"github.com/sitecrew-dev/sitecrew/internal/notify"
	"github.com/sitecrew-dev/sitecrew/internal/router"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load(context.Background())

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	auth.SetJWTSecret(cfg.JWTSecret)
	handlers.Domain = cfg.Domain

	if err := db.ConnectDatabase(cfg.DatabaseDSN); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	notify.Init(&notify.Dispatcher{
		Email:       notify.NewEmailSink(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, cfg.SinkTimeout),
		Push:        notify.NewPushSink(cfg.PushAPIURL, cfg.PushSecretKey, cfg.SinkTimeout),
		AppURL:      cfg.AppURL,
		OnPersisted: handlers.BroadcastNotification,
	})

	reminder := notify.NewReminder(cfg.ReminderInterval, cfg.ReminderHorizon)
	reminder.Start()
	defer reminder.Stop()

	r := router.NewRouter()

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
