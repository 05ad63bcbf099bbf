package claim

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/tagrush/backend/internal/apperr"
	"github.com/tagrush/backend/internal/auth"
	"github.com/tagrush/backend/internal/matches"
	"github.com/tagrush/backend/internal/metrics"
	"github.com/tagrush/backend/internal/models"
)

// Store is the part of the match store the claim flow relies on.
type Store interface {
	GetMatchByToken(ctx context.Context, token string) (*models.Match, error)
	ClaimMatch(ctx context.Context, token, nickname, contactInfo string) (*matches.ClaimResult, error)
}

// Notifier is told about every successful claim.
type Notifier interface {
	LeaderboardChanged(ctx context.Context)
}

// Status describes a token before the player fills in the claim form.
type Status struct {
	Valid      bool  `json:"valid"`
	DurationMs int64 `json:"time"`
}

// Result is returned to a successful claimant.
type Result struct {
	PlayerID       int64     `json:"player_id"`
	Nickname       string    `json:"nickname"`
	DurationMs     int64     `json:"time"`
	PlayerToken    string    `json:"player_token"`
	TokenExpiresAt time.Time `json:"player_token_expires_at"`
}

// Service hands an unclaimed match over to a new player.
type Service struct {
	store    Store
	tokens   *auth.PlayerTokens
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewService(store Store, tokens *auth.PlayerTokens, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{store: store, tokens: tokens, notifier: notifier, metrics: m}
}

// Check reports whether token can still be claimed.
func (s *Service) Check(ctx context.Context, token string) (*Status, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Invalid("token", "No token provided")
	}

	m, err := s.store.GetMatchByToken(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if m.Claimed() {
		return nil, &apperr.AlreadyClaimedError{DurationMs: m.DurationMs}
	}

	return &Status{Valid: true, DurationMs: m.DurationMs}, nil
}

// Claim performs the atomic claim. If it returns a *apperr.PersistenceError
// the outcome is unknown: callers must Check the token again rather than
// retry.
func (s *Service) Claim(ctx context.Context, token, nickname, contactInfo string) (*Result, error) {
	token = strings.TrimSpace(token)
	nickname = strings.TrimSpace(nickname)

	res, err := s.store.ClaimMatch(ctx, token, nickname, contactInfo)
	if err != nil {
		s.metrics.Claim(outcome(err))
		if !apperr.IsValidation(err) {
			log.Printf("[CLAIM] Claim rejected: %v", err)
		}
		return nil, err
	}
	s.metrics.Claim(metrics.ClaimSuccess)
	log.Printf("[CLAIM] Match %d claimed by player %d (time=%dms)", res.MatchID, res.PlayerID, res.DurationMs)

	out := &Result{PlayerID: res.PlayerID, Nickname: nickname, DurationMs: res.DurationMs}
	if s.tokens != nil {
		// The claim is committed; a signing failure only costs the player
		// their results link.
		signed, exp, err := s.tokens.Issue(res.PlayerID, nickname)
		if err != nil {
			log.Printf("[CLAIM] Failed to sign player token for %d: %v", res.PlayerID, err)
		} else {
			out.PlayerToken, out.TokenExpiresAt = signed, exp
		}
	}

	if s.notifier != nil {
		s.notifier.LeaderboardChanged(ctx)
	}

	return out, nil
}

func outcome(err error) string {
	if errors.Is(err, apperr.ErrInvalidToken) {
		return metrics.ClaimInvalidToken
	}
	if _, ok := apperr.AsAlreadyClaimed(err); ok {
		return metrics.ClaimAlreadyClaimed
	}
	if apperr.IsValidation(err) {
		return metrics.ClaimValidation
	}
	return metrics.ClaimError
}
