package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tagrush/backend/internal/claim"
)

// CheckClaim reports whether the token in ?token= can still be claimed.
func CheckClaim(svc *claim.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.Check(c.Request.Context(), c.Query("token"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// SubmitClaim links the submitted nickname to an unclaimed match.
func SubmitClaim(svc *claim.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token    string `json:"token"`
			Nickname string `json:"nickname"`
			Contact  string `json:"contact"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		res, err := svc.Claim(c.Request.Context(), req.Token, req.Nickname, req.Contact)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":                 true,
			"player_id":               res.PlayerID,
			"nickname":                res.Nickname,
			"time":                    res.DurationMs,
			"player_token":            res.PlayerToken,
			"player_token_expires_at": res.TokenExpiresAt,
		})
	}
}
