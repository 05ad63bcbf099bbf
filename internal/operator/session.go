package operator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL bounds how long an operator stays logged in.
const DefaultSessionTTL = 4 * time.Hour

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is what an operator session token resolves to.
type Session struct {
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expires_at"`
}

// SessionStore keeps operator sessions keyed by an opaque token.
type SessionStore interface {
	Create(ctx context.Context, email string) (token string, err error)
	Lookup(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("operator_session:%s", token)
}

// RedisSessionStore keeps sessions in redis so they survive restarts and
// are shared between instances.
type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisSessionStore) Create(ctx context.Context, email string) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}

	data, _ := json.Marshal(Session{Email: email, ExpiresAt: time.Now().Add(s.ttl).Unix()})
	if err := s.rdb.Set(ctx, sessionKey(token), data, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisSessionStore) Lookup(ctx context.Context, token string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.Email == "" {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKey(token)).Err()
}

// MemorySessionStore keeps sessions in process. It is used when no redis
// is configured (single instance development runs).
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{ttl: ttl, now: time.Now, sessions: make(map[string]Session)}
}

func (s *MemorySessionStore) Create(ctx context.Context, email string) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[token] = Session{Email: email, ExpiresAt: s.now().Add(s.ttl).Unix()}
	s.mu.Unlock()
	return token, nil
}

func (s *MemorySessionStore) Lookup(ctx context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.now().Unix() >= sess.ExpiresAt {
		delete(s.sessions, token)
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}
