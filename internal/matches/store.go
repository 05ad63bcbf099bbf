package matches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/tagrush/backend/internal/apperr"
	"github.com/tagrush/backend/internal/leaderboard"
	"github.com/tagrush/backend/internal/models"
	"github.com/tagrush/backend/internal/token"
	"gopkg.in/guregu/null.v4"
)

const (
	DefaultRecentLimit = 10
	MaxListLimit       = 200

	MaxNicknameLength = 32
	MaxContactLength  = 255
)

var matchColumns = []string{
	"m.id", "m.duration_ms", "m.session_token", "m.player_id", "m.created_at", "m.claimed_at",
}

// errNotClaimable signals that the conditional update matched no row.
var errNotClaimable = errors.New("no unclaimed match for token")

// ClaimResult is returned by a successful claim.
type ClaimResult struct {
	PlayerID   int64
	MatchID    int64
	DurationMs int64
}

// Store owns every write to the matches table. CreateMatch and ClaimMatch
// are the only mutation paths.
type Store struct {
	db       *sqlx.DB
	sq       squirrel.StatementBuilderType
	ranker   *leaderboard.Ranker
	now      func() time.Time
	newToken func() string
}

// NewStore creates a Store on top of the shared database handle.
func NewStore(db *sqlx.DB, ranker *leaderboard.Ranker) *Store {
	var format squirrel.PlaceholderFormat = squirrel.Question
	if db.DriverName() == "postgres" {
		format = squirrel.Dollar
	}

	return &Store{
		db:       db,
		sq:       squirrel.StatementBuilder.PlaceholderFormat(format),
		ranker:   ranker,
		now:      time.Now,
		newToken: token.Generate,
	}
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CreateMatch persists a new unclaimed match with a fresh claim token.
func (s *Store) CreateMatch(ctx context.Context, durationMs int64) (*models.Match, error) {
	if durationMs < 0 {
		return nil, apperr.Invalid("duration_ms", "must be a non-negative integer")
	}

	m := models.Match{
		DurationMs:   durationMs,
		SessionToken: s.newToken(),
		CreatedAt:    s.timestamp(),
	}

	query, args, err := s.sq.Insert("matches").
		Columns("duration_ms", "session_token", "created_at").
		Values(m.DurationMs, m.SessionToken, m.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, apperr.Persistence("create match", err)
	}

	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&m.ID); err != nil {
		return nil, apperr.Persistence("create match", err)
	}

	return &m, nil
}

// GetMatchByToken looks a match up by its exact claim token.
func (s *Store) GetMatchByToken(ctx context.Context, token string) (*models.Match, error) {
	query, args, err := s.sq.Select(matchColumns...).
		From("matches m").
		Where(squirrel.Eq{"m.session_token": token}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, apperr.Persistence("get match", err)
	}

	var m models.Match
	if err := s.db.GetContext(ctx, &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("get match", err)
	}

	return &m, nil
}

// GetMatchByID is the operator lookup used to reprint a QR code.
func (s *Store) GetMatchByID(ctx context.Context, id int64) (*models.Match, error) {
	query, args, err := s.sq.Select(matchColumns...).
		From("matches m").
		Where(squirrel.Eq{"m.id": id}).
		ToSql()
	if err != nil {
		return nil, apperr.Persistence("get match", err)
	}

	var m models.Match
	if err := s.db.GetContext(ctx, &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("get match", err)
	}

	return &m, nil
}

// ClaimMatch links a new player to the unclaimed match holding token.
//
// The player insert and the conditional update run in one transaction. The
// update only matches a row whose player_id is still NULL, so when several
// claims race on one token the database lets exactly one of them through.
// A failed claim rolls back and leaves no player behind.
func (s *Store) ClaimMatch(ctx context.Context, token, nickname, contactInfo string) (*ClaimResult, error) {
	nickname = strings.TrimSpace(nickname)
	contactInfo = strings.TrimSpace(contactInfo)

	if token == "" {
		return nil, apperr.ErrInvalidToken
	}

	if err := validateClaimant(nickname, contactInfo); err != nil {
		// Token problems are reported before input problems.
		if cerr := s.classifyToken(ctx, token); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	var res ClaimResult
	err := transaction(ctx, s.db, func(tx *sqlx.Tx) error {
		now := s.timestamp()

		query, args, err := s.sq.Insert("players").
			Columns("nickname", "contact_info", "created_at").
			Values(nickname, null.NewString(contactInfo, contactInfo != ""), now).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.QueryRowxContext(ctx, query, args...).Scan(&res.PlayerID); err != nil {
			return apperr.Persistence("create player", err)
		}

		res.MatchID, res.DurationMs, err = s.markClaimed(ctx, tx, token, res.PlayerID, now)
		return err
	})

	if errors.Is(err, errNotClaimable) {
		if cerr := s.classifyToken(ctx, token); cerr != nil {
			return nil, cerr
		}
		return nil, apperr.Persistence("claim match", err)
	}
	if err != nil {
		var perr *apperr.PersistenceError
		if !errors.As(err, &perr) {
			err = apperr.Persistence("claim match", err)
		}
		return nil, err
	}

	return &res, nil
}

// markClaimed links playerID to the match holding token, but only while the
// match is still unclaimed. It returns errNotClaimable when no such row
// exists, which is what makes concurrent claims on one token safe.
func (s *Store) markClaimed(ctx context.Context, tx *sqlx.Tx, token string, playerID int64, now time.Time) (int64, int64, error) {
	query, args, err := s.sq.Update("matches").
		Set("player_id", playerID).
		Set("claimed_at", now).
		Where(squirrel.Eq{"session_token": token, "player_id": nil}).
		Suffix("RETURNING id, duration_ms").
		ToSql()
	if err != nil {
		return 0, 0, err
	}

	var matchID, durationMs int64
	err = tx.QueryRowxContext(ctx, query, args...).Scan(&matchID, &durationMs)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, errNotClaimable
	}
	if err != nil {
		return 0, 0, apperr.Persistence("claim match", err)
	}
	return matchID, durationMs, nil
}

// classifyToken maps a token that cannot be claimed to its error kind. It
// returns nil when the token names an unclaimed match.
func (s *Store) classifyToken(ctx context.Context, token string) error {
	m, err := s.GetMatchByToken(ctx, token)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.ErrInvalidToken
	case err != nil:
		return err
	case m.Claimed():
		return &apperr.AlreadyClaimedError{DurationMs: m.DurationMs}
	}
	return nil
}

func validateClaimant(nickname, contactInfo string) error {
	if nickname == "" {
		return apperr.Invalid("nickname", "Nickname is required")
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return apperr.Invalid("nickname", fmt.Sprintf("must be at most %d characters", MaxNicknameLength))
	}
	if utf8.RuneCountInString(contactInfo) > MaxContactLength {
		return apperr.Invalid("contact", fmt.Sprintf("must be at most %d characters", MaxContactLength))
	}
	return nil
}

// ListRecentMatches returns the operator view, most recent first.
func (s *Store) ListRecentMatches(ctx context.Context, limit int) ([]models.RecentMatch, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query, args, err := s.sq.Select(append(matchColumns, "p.nickname", "p.contact_info")...).
		From("matches m").
		LeftJoin("players p ON p.id = m.player_id").
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(uint64(clampLimit(limit))).
		ToSql()
	if err != nil {
		return nil, apperr.Persistence("list recent matches", err)
	}

	rows := []models.RecentMatch{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperr.Persistence("list recent matches", err)
	}

	return rows, nil
}

// ListLeaderboard returns claimed matches in ranking order.
func (s *Store) ListLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit = clampLimit(s.ranker.Limit(limit))

	query, args, err := s.sq.Select("m.id", "m.duration_ms", "m.created_at", "p.nickname").
		From("matches m").
		Join("players p ON p.id = m.player_id").
		Where("m.player_id IS NOT NULL").
		OrderBy(s.ranker.OrderBy("m.duration_ms", "m.created_at", "m.id")...).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, apperr.Persistence("list leaderboard", err)
	}

	rows := []models.LeaderboardEntry{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperr.Persistence("list leaderboard", err)
	}

	return rows, nil
}

// ListPlayerMatches returns the matches claimed by one player.
func (s *Store) ListPlayerMatches(ctx context.Context, playerID int64) ([]models.Match, error) {
	query, args, err := s.sq.Select(matchColumns...).
		From("matches m").
		Where(squirrel.Eq{"m.player_id": playerID}).
		OrderBy("m.created_at DESC", "m.id DESC").
		ToSql()
	if err != nil {
		return nil, apperr.Persistence("list player matches", err)
	}

	rows := []models.Match{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperr.Persistence("list player matches", err)
	}

	return rows, nil
}

func clampLimit(n int) int {
	if n > MaxListLimit {
		return MaxListLimit
	}
	if n < 1 {
		return 1
	}
	return n
}

type transactionCallback func(*sqlx.Tx) error

func transaction(ctx context.Context, db *sqlx.DB, cb transactionCallback) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Persistence("begin transaction", err)
	}

	if err := cb(tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			return fmt.Errorf("rollback error: %s\noriginal error: %w", err2, err)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Persistence("commit", err)
	}
	return nil
}
