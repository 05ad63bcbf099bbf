package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tagrush/backend/internal/leaderboard"
	"github.com/tagrush/backend/internal/matches"
	"github.com/tagrush/backend/internal/metrics"
	"github.com/tagrush/backend/internal/models"
	"github.com/tagrush/backend/internal/ws"
)

type leaderboardRow struct {
	Rank       int       `json:"rank"`
	MatchID    int64     `json:"match_id"`
	Nickname   string    `json:"nickname"`
	DurationMs int64     `json:"time"`
	CreatedAt  time.Time `json:"created_at"`
}

type leaderboardResponse struct {
	Type      string                `json:"type,omitempty"`
	Direction leaderboard.Direction `json:"direction"`
	Entries   []leaderboardRow      `json:"entries"`
}

func buildLeaderboard(entries []models.LeaderboardEntry, dir leaderboard.Direction) leaderboardResponse {
	rows := make([]leaderboardRow, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, leaderboardRow{
			Rank:       i + 1,
			MatchID:    e.MatchID,
			Nickname:   e.Nickname,
			DurationMs: e.DurationMs,
			CreatedAt:  e.CreatedAt,
		})
	}
	return leaderboardResponse{Direction: dir, Entries: rows}
}

// GetLeaderboard returns the ranked claimed matches.
func GetLeaderboard(store *matches.Store, ranker *leaderboard.Ranker, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "field": "limit"})
				return
			}
			limit = n
		}

		entries, err := store.ListLeaderboard(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		m.LeaderboardRead()

		c.JSON(http.StatusOK, buildLeaderboard(entries, ranker.Direction()))
	}
}

// LeaderboardSnapshot builds the message pushed to live feed viewers.
func LeaderboardSnapshot(store *matches.Store, ranker *leaderboard.Ranker) ws.SnapshotFunc {
	return func(ctx context.Context) ([]byte, error) {
		entries, err := store.ListLeaderboard(ctx, 0)
		if err != nil {
			return nil, err
		}

		resp := buildLeaderboard(entries, ranker.Direction())
		resp.Type = "leaderboard"
		return json.Marshal(resp)
	}
}
