package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultPlayerTokenTTL is how long a claimant can look up their results.
const DefaultPlayerTokenTTL = 30 * 24 * time.Hour

// PlayerClaims identifies the player created by a claim.
type PlayerClaims struct {
	PlayerID int64  `json:"player_id"`
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

// PlayerTokens signs and verifies HS256 player tokens.
type PlayerTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewPlayerTokens(secret string, ttl time.Duration) *PlayerTokens {
	if ttl <= 0 {
		ttl = DefaultPlayerTokenTTL
	}
	return &PlayerTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for playerID.
func (p *PlayerTokens) Issue(playerID int64, nickname string) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	claims := PlayerClaims{
		PlayerID: playerID,
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", playerID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its claims.
func (p *PlayerTokens) Parse(token string) (*PlayerClaims, error) {
	claims := &PlayerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.PlayerID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
