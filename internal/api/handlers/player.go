package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tagrush/backend/internal/matches"
	"github.com/tagrush/backend/internal/middleware"
)

// PlayerMe returns the matches claimed by the authenticated player.
func PlayerMe(store *matches.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetInt64(middleware.PlayerIDKey)

		rows, err := store.ListPlayerMatches(c.Request.Context(), playerID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"player_id": playerID,
			"nickname":  c.GetString(middleware.PlayerNameKey),
			"matches":   rows,
		})
	}
}
