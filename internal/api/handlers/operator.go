package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/tagrush/backend/internal/config"
	"github.com/tagrush/backend/internal/middleware"
	"github.com/tagrush/backend/internal/operator"
)

const operatorCookiePath = "/api/v1/operator"

func operatorSessionTTL(cfg *config.Config) time.Duration {
	if cfg.OperatorSessionTTLMinutes > 0 {
		return time.Duration(cfg.OperatorSessionTTLMinutes) * time.Minute
	}
	return operator.DefaultSessionTTL
}

// OperatorLogin validates email/password and creates a session cookie
func OperatorLogin(db *sqlx.DB, sessions operator.SessionStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		ctx := c.Request.Context()
		email := operator.NormalizeEmail(req.Email)
		details := map[string]interface{}{"email": email}

		acc, err := operator.ValidateCredentials(ctx, db, email, req.Password)
		if err != nil {
			operator.LogAction(ctx, db, email, c.ClientIP(), c.FullPath(), "login", details, false)
			if errors.Is(err, operator.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}

		token, err := sessions.Create(ctx, acc.Email)
		if err != nil {
			log.Printf("[OPERATOR] Failed to store session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		// HTTP-only cookie scoped to the operator routes
		secure := cfg.Environment == "production"
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(middleware.OperatorCookieName, token, int(operatorSessionTTL(cfg).Seconds()), operatorCookiePath, "", secure, true)

		operator.LogAction(ctx, db, acc.Email, c.ClientIP(), c.FullPath(), "login", details, true)
		log.Printf("[OPERATOR] %s logged in", acc.Email)
		c.JSON(http.StatusOK, gin.H{"ok": true, "email": acc.Email, "display_name": acc.DisplayName})
	}
}

// OperatorLogout clears the operator session
func OperatorLogout(sessions operator.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(middleware.OperatorCookieName)
		if err == nil && token != "" {
			if err := sessions.Delete(c.Request.Context(), token); err != nil {
				log.Printf("[OPERATOR] Failed to delete session: %v", err)
			}
		}

		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(middleware.OperatorCookieName, "", -1, operatorCookiePath, "", false, true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// OperatorMe returns the current operator account
func OperatorMe(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		acc, err := operator.GetOperatorAccount(c.Request.Context(), db, c.GetString(middleware.OperatorEmailKey))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.JSON(http.StatusOK, acc)
	}
}

// GetAuditLogs returns operator audit entries, newest first
func GetAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		email := strings.TrimSpace(c.Query("email"))
		logs, err := operator.GetAuditLogs(c.Request.Context(), db, email, limit, offset)
		if err != nil {
			log.Printf("[OPERATOR] Failed to load audit logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit logs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"logs": logs, "limit": limit, "offset": offset})
	}
}
