package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tagrush/backend/internal/apperr"
)

// respondError writes the JSON error response for err.
func respondError(c *gin.Context, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
		return
	}

	if errors.Is(err, apperr.ErrInvalidToken) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid token"})
		return
	}

	if claimed, ok := apperr.AsAlreadyClaimed(err); ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Match already claimed", "time": claimed.DurationMs})
		return
	}

	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
