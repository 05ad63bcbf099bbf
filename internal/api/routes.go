package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/tagrush/backend/internal/api/handlers"
	"github.com/tagrush/backend/internal/auth"
	"github.com/tagrush/backend/internal/claim"
	"github.com/tagrush/backend/internal/config"
	"github.com/tagrush/backend/internal/issuance"
	"github.com/tagrush/backend/internal/leaderboard"
	"github.com/tagrush/backend/internal/matches"
	"github.com/tagrush/backend/internal/metrics"
	"github.com/tagrush/backend/internal/middleware"
	"github.com/tagrush/backend/internal/operator"
	"github.com/tagrush/backend/internal/ws"
)

// Deps holds the process-wide services the routes are built from.
type Deps struct {
	DB           *sqlx.DB
	Config       *config.Config
	Store        *matches.Store
	Ranker       *leaderboard.Ranker
	Claims       *claim.Service
	Issuer       *issuance.Service
	Sessions     operator.SessionStore
	PlayerTokens *auth.PlayerTokens
	Feed         *ws.Feed
	Metrics      *metrics.Metrics
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config

	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.DB))

		v1.GET("/leaderboard", handlers.GetLeaderboard(d.Store, d.Ranker, d.Metrics))
		v1.GET("/leaderboard/ws", d.Feed.ServeWS())

		v1.GET("/claim", handlers.CheckClaim(d.Claims))
		v1.POST("/claim", handlers.SubmitClaim(d.Claims))

		player := v1.Group("/player")
		player.Use(middleware.PlayerAuth(d.PlayerTokens))
		{
			player.GET("/me", handlers.PlayerMe(d.Store))
		}

		op := v1.Group("/operator")
		{
			op.POST("/login", handlers.OperatorLogin(d.DB, d.Sessions, cfg))
			op.POST("/logout", handlers.OperatorLogout(d.Sessions))

			authed := op.Group("")
			authed.Use(middleware.OperatorSession(d.Sessions))
			{
				authed.GET("/me", handlers.OperatorMe(d.DB))
				authed.POST("/matches", handlers.CreateMatch(d.DB, d.Issuer, d.Metrics, cfg))
				authed.GET("/matches", handlers.ListRecentMatches(d.Store, cfg))
				authed.GET("/matches/:id/qr.png", handlers.MatchQR(d.Store, d.Issuer, cfg))
				authed.GET("/audit", handlers.GetAuditLogs(d.DB))
			}
		}
	}
}
