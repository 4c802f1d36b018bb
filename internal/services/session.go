package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"reviewking/agent/internal/models"
)

// SessionStore persists the agent's per-session state. The state is always
// written wholesale; there is no partial update. Implementations must treat
// Rekey as move semantics: after a backend echoes its own session id the old
// record is gone.
type SessionStore interface {
	Save(ctx context.Context, state *models.SessionState) error
	Load(ctx context.Context, sessionID string) (*models.SessionState, error)
	Rekey(ctx context.Context, oldID, newID string) error
	Delete(ctx context.Context, sessionID string) error
}

// NewSessionID returns a fresh client-generated session token. The backend
// may later replace it with a server-issued one for its own caching.
func NewSessionID() string {
	return uuid.New().String()
}

func sessionKey(id string) string {
	return fmt.Sprintf("agent:session:%s:state", id)
}

// RedisSessions keeps session state in Redis with the configured TTL, so a
// closed or abandoned page never leaves state behind permanently.
type RedisSessions struct {
	redis *RedisClient
}

// NewRedisSessions creates a Redis-backed session store.
func NewRedisSessions(redis *RedisClient) *RedisSessions {
	return &RedisSessions{redis: redis}
}

// Save writes the whole session state and refreshes its TTL.
func (s *RedisSessions) Save(ctx context.Context, state *models.SessionState) error {
	if state.SessionID == "" {
		return fmt.Errorf("save session: empty session id")
	}
	if err := s.redis.SetJSON(ctx, sessionKey(state.SessionID), state); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load retrieves the session state for a token.
func (s *RedisSessions) Load(ctx context.Context, sessionID string) (*models.SessionState, error) {
	var state models.SessionState
	if err := s.redis.GetJSON(ctx, sessionKey(sessionID), &state); err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Rekey moves a session record to a server-issued id.
func (s *RedisSessions) Rekey(ctx context.Context, oldID, newID string) error {
	state, err := s.Load(ctx, oldID)
	if err != nil {
		return err
	}
	state.SessionID = newID
	if err := s.Save(ctx, state); err != nil {
		return err
	}
	return s.redis.Delete(ctx, sessionKey(oldID))
}

// Delete removes the session record.
func (s *RedisSessions) Delete(ctx context.Context, sessionID string) error {
	return s.redis.Delete(ctx, sessionKey(sessionID))
}

// Exists reports whether a session token is live.
func (s *RedisSessions) Exists(ctx context.Context, sessionID string) (bool, error) {
	return s.redis.Exists(ctx, sessionKey(sessionID))
}

// Touch refreshes the TTL for an active session.
func (s *RedisSessions) Touch(ctx context.Context, sessionID string) error {
	return s.redis.Touch(ctx, sessionKey(sessionID))
}
