package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tagrush/backend/internal/auth"
	"github.com/tagrush/backend/internal/operator"
)

// OperatorCookieName is the session cookie set on operator login.
const OperatorCookieName = "operator_session"

// Context keys set by the auth middlewares.
const (
	OperatorEmailKey = "operator_email"
	PlayerIDKey      = "player_id"
	PlayerNameKey    = "player_nickname"
)

// OperatorSession validates the operator session cookie and sets
// operator_email in the context.
func OperatorSession(sessions operator.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(OperatorCookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		sess, err := sessions.Lookup(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		c.Set(OperatorEmailKey, sess.Email)
		c.Next()
	}
}

// PlayerAuth validates a bearer player token and sets player_id in the
// context.
func PlayerAuth(tokens *auth.PlayerTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(PlayerIDKey, claims.PlayerID)
		c.Set(PlayerNameKey, claims.Nickname)
		c.Next()
	}
}
