package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/tagrush/backend/internal/apperr"
	"github.com/tagrush/backend/internal/config"
	"github.com/tagrush/backend/internal/issuance"
	"github.com/tagrush/backend/internal/matches"
	"github.com/tagrush/backend/internal/metrics"
	"github.com/tagrush/backend/internal/middleware"
	"github.com/tagrush/backend/internal/operator"
)

// publicOrigin is the origin claim URLs point at. PUBLIC_ORIGIN wins;
// otherwise it is derived from the request.
func publicOrigin(c *gin.Context, cfg *config.Config) string {
	if cfg.PublicOrigin != "" {
		return cfg.PublicOrigin
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + c.Request.Host
}

// rawDuration accepts duration_ms as either a JSON number or a string.
func rawDuration(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	return strings.Trim(s, `"`)
}

// CreateMatch issues a new match and returns its claim QR code
func CreateMatch(db *sqlx.DB, issuer *issuance.Service, m *metrics.Metrics, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DurationMs json.RawMessage `json:"duration_ms"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		ctx := c.Request.Context()
		email := c.GetString(middleware.OperatorEmailKey)

		issued, err := issuer.IssueMatch(ctx, rawDuration(req.DurationMs), publicOrigin(c, cfg))
		var rerr *apperr.RenderError
		if err != nil && !errors.As(err, &rerr) {
			operator.LogAction(ctx, db, email, c.ClientIP(), c.FullPath(), "create_match",
				map[string]interface{}{"duration_ms": rawDuration(req.DurationMs), "error": err.Error()}, false)
			respondError(c, err)
			return
		}
		m.MatchIssued()

		operator.LogAction(ctx, db, email, c.ClientIP(), c.FullPath(), "create_match",
			map[string]interface{}{"match_id": issued.Match.ID, "duration_ms": issued.Match.DurationMs}, true)

		resp := gin.H{
			"success":          true,
			"match":            issued.Match,
			"claim_url":        issued.ClaimURL,
			"qr_code_data_url": issued.QRDataURL,
		}
		if rerr != nil {
			m.QRFailed()
			resp["qr_error"] = "QR code could not be generated; share the claim URL instead"
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// ListRecentMatches returns the most recently issued matches
func ListRecentMatches(store *matches.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := cfg.RecentMatchesLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "field": "limit"})
				return
			}
			limit = n
		}

		rows, err := store.ListRecentMatches(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": rows})
	}
}

// MatchQR re-renders the claim QR code of an existing match as a PNG
func MatchQR(store *matches.Store, issuer *issuance.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match id", "field": "id"})
			return
		}

		match, err := store.GetMatchByID(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		png, err := issuer.Render(issuance.ClaimURL(publicOrigin(c, cfg), match.SessionToken))
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	}
}
