package models

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Match is one recorded timed chase, issued by an operator and optionally
// claimed later by the physical winner.
type Match struct {
	ID           int64     `db:"id" json:"id"`
	DurationMs   int64     `db:"duration_ms" json:"duration_ms"`
	SessionToken string    `db:"session_token" json:"session_token"`
	PlayerID     null.Int  `db:"player_id" json:"player_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ClaimedAt    null.Time `db:"claimed_at" json:"claimed_at"`
}

// Claimed reports whether a player has been linked to the match.
func (m Match) Claimed() bool {
	return m.PlayerID.Valid
}

// Player is created once per successful claim
type Player struct {
	ID          int64       `db:"id" json:"id"`
	Nickname    string      `db:"nickname" json:"nickname"`
	ContactInfo null.String `db:"contact_info" json:"contact_info"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// RecentMatch is the operator view of a match, joined with its claimant if any.
type RecentMatch struct {
	Match
	Nickname    null.String `db:"nickname" json:"nickname"`
	ContactInfo null.String `db:"contact_info" json:"contact_info"`
}

// LeaderboardEntry is one ranked row of the public leaderboard.
type LeaderboardEntry struct {
	MatchID    int64     `db:"id" json:"match_id"`
	DurationMs int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Nickname   string    `db:"nickname" json:"nickname"`
}

// OperatorAccount represents an event operator allowed to issue matches
type OperatorAccount struct {
	Email        string    `db:"email" json:"email"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// OperatorAudit is one entry of the operator action log
type OperatorAudit struct {
	ID            int64     `db:"id" json:"id"`
	OperatorEmail string    `db:"operator_email" json:"operator_email"`
	IP            string    `db:"ip" json:"ip"`
	Route         string    `db:"route" json:"route"`
	Action        string    `db:"action" json:"action"`
	Details       string    `db:"details" json:"details"`
	Success       bool      `db:"success" json:"success"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
