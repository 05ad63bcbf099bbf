package middleware

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tagrush/backend/internal/config"
)

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	log.Printf("[CORS] Environment: %s, FrontendURL: %s", cfg.Environment, cfg.FrontendURL)

	corsConfig := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour, // Cache preflight responses
	}

	// Operator cookies need explicit origins; the dev server runs on Vite.
	allowedOrigins := []string{}
	if cfg.Environment == "development" {
		allowedOrigins = append(allowedOrigins, "http://localhost:5173", "http://127.0.0.1:5173")
	}
	for _, origin := range []string{cfg.FrontendURL, cfg.PublicOrigin} {
		if origin != "" && !contains(allowedOrigins, origin) {
			allowedOrigins = append(allowedOrigins, origin)
		}
	}
	corsConfig.AllowOrigins = allowedOrigins
	log.Printf("[CORS] Allowed origins: %v", allowedOrigins)

	return cors.New(corsConfig)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
