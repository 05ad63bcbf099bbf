package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/tagrush/backend/internal/api"
	"github.com/tagrush/backend/internal/api/handlers"
	"github.com/tagrush/backend/internal/auth"
	"github.com/tagrush/backend/internal/claim"
	"github.com/tagrush/backend/internal/config"
	"github.com/tagrush/backend/internal/database"
	"github.com/tagrush/backend/internal/issuance"
	"github.com/tagrush/backend/internal/leaderboard"
	"github.com/tagrush/backend/internal/matches"
	"github.com/tagrush/backend/internal/metrics"
	"github.com/tagrush/backend/internal/migrations"
	"github.com/tagrush/backend/internal/operator"
	"github.com/tagrush/backend/internal/qr"
	"github.com/tagrush/backend/internal/redis"
	"github.com/tagrush/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	direction, err := leaderboard.ParseDirection(cfg.LeaderboardDirection)
	if err != nil {
		log.Fatalf("Invalid LEADERBOARD_DIRECTION: %v", err)
	}

	// Run migrations on start if requested
	if cfg.MigrateOnStart {
		log.Println("↗ Running DB migrations on startup...")
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

	// Redis is optional: without it sessions live in memory and the
	// leaderboard feed only reaches viewers of this instance.
	sessionTTL := time.Duration(cfg.OperatorSessionTTLMinutes) * time.Minute
	var rdb *goredis.Client
	var sessions operator.SessionStore
	if cfg.RedisURL != "" {
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		sessions = operator.NewRedisSessionStore(rdb, sessionTTL)
	} else {
		log.Println("[REDIS] REDIS_URL not set; using in-memory operator sessions")
		sessions = operator.NewMemorySessionStore(sessionTTL)
	}

	ranker := leaderboard.NewRanker(direction, cfg.LeaderboardLimit)
	store := matches.NewStore(db, ranker)
	m := metrics.New()
	tokens := auth.NewPlayerTokens(cfg.JWTSecret, time.Duration(cfg.PlayerTokenTTLHours)*time.Hour)

	// Wire Redis and start the leaderboard relay in the WS layer
	feed := ws.NewFeed(ws.NewHub(), rdb, handlers.LeaderboardSnapshot(store, ranker))
	feed.StartSubscriber(context.Background())

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	api.SetupRoutes(router, api.Deps{
		DB:           db,
		Config:       cfg,
		Store:        store,
		Ranker:       ranker,
		Claims:       claim.NewService(store, tokens, feed, m),
		Issuer:       issuance.NewService(store, qr.NewPNGRenderer(), cfg.QRSize),
		Sessions:     sessions,
		PlayerTokens: tokens,
		Feed:         feed,
		Metrics:      m,
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting TagRush server on port %s (leaderboard %s)", port, direction)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
