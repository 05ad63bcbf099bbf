package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseDriver string
	DatabaseURL    string
	MigrateOnStart bool

	// Redis (optional; sessions fall back to memory without it)
	RedisURL string

	// Server
	Port         string
	FrontendURL  string
	PublicOrigin string

	// Event settings
	LeaderboardDirection string
	LeaderboardLimit     int
	RecentMatchesLimit   int
	QRSize               int

	// Security
	JWTSecret                 string
	PlayerTokenTTLHours       int
	OperatorSessionTTLMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/tagrush?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:         getEnv("APP_PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:5173"),
		PublicOrigin: getEnv("PUBLIC_ORIGIN", ""),

		// Event settings
		LeaderboardDirection: getEnv("LEADERBOARD_DIRECTION", ""),
		LeaderboardLimit:     getEnvInt("LEADERBOARD_LIMIT", 50),
		RecentMatchesLimit:   getEnvInt("RECENT_MATCHES_LIMIT", 10),
		QRSize:               getEnvInt("QR_SIZE", 300),

		// Security
		JWTSecret:                 getEnv("JWT_SECRET", "change-me-in-production"),
		PlayerTokenTTLHours:       getEnvInt("PLAYER_TOKEN_TTL_HOURS", 24*30),
		OperatorSessionTTLMinutes: getEnvInt("OPERATOR_SESSION_TTL_MINUTES", 240),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
