package leaderboard

import (
	"fmt"
	"strings"
)

// Direction decides whether a shorter or a longer duration ranks higher.
type Direction string

const (
	// Ascending ranks the fastest catch first.
	Ascending Direction = "asc"
	// Descending ranks the longest chase first.
	Descending Direction = "desc"
)

// DefaultDirection is the ranking policy of the event: the chaser competes
// for the time it takes to catch the runner, so shorter is better.
const DefaultDirection = Ascending

// DefaultLimit bounds the public leaderboard when no limit is requested.
const DefaultLimit = 50

// ParseDirection accepts "asc"/"ascending" or "desc"/"descending". An empty
// value resolves to DefaultDirection.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultDirection, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", fmt.Errorf("unknown leaderboard direction %q", s)
}

// Ranker is the single place that knows the ranking direction. The store
// asks it for the SQL ordering and the default limit.
type Ranker struct {
	direction Direction
	limit     int
}

// NewRanker creates a Ranker. A non-positive limit falls back to DefaultLimit.
func NewRanker(direction Direction, limit int) *Ranker {
	if direction != Descending {
		direction = Ascending
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ranker{direction: direction, limit: limit}
}

func (r *Ranker) Direction() Direction {
	return r.direction
}

// Limit returns the requested bound, or the ranker's default when n <= 0.
func (r *Ranker) Limit(n int) int {
	if n <= 0 {
		return r.limit
	}
	return n
}

// OrderBy returns the ORDER BY terms for the given columns: duration in the
// configured direction, then earlier match first, then lower id.
func (r *Ranker) OrderBy(durationCol, createdCol, idCol string) []string {
	dir := "ASC"
	if r.direction == Descending {
		dir = "DESC"
	}
	return []string{
		durationCol + " " + dir,
		createdCol + " ASC",
		idCol + " ASC",
	}
}
