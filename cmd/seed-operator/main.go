package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/tagrush/backend/internal/config"
	"github.com/tagrush/backend/internal/database"
	"github.com/tagrush/backend/internal/migrations"
	"github.com/tagrush/backend/internal/operator"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	if cfg.MigrateOnStart {
		if err := migrations.RunMigrations(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	email := os.Getenv("OPERATOR_EMAIL")
	if email == "" {
		log.Fatal("OPERATOR_EMAIL is required")
	}

	password := os.Getenv("OPERATOR_PASSWORD")
	if password == "" {
		log.Fatal("OPERATOR_PASSWORD is required")
	}

	displayName := os.Getenv("OPERATOR_NAME")
	if displayName == "" {
		displayName = "Operator"
	}

	if err := operator.CreateOperatorAccount(context.Background(), db, email, displayName, password); err != nil {
		log.Fatalf("Failed to create operator account: %v", err)
	}

	log.Printf("✓ Operator account created/updated successfully")
	log.Printf("  Email: %s", operator.NormalizeEmail(email))
	log.Printf("  Display Name: %s", displayName)
}
