package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voicebridge-backend/internal/domain"
)

const (
	sessionKeyPrefix = "bridge:call:"
	activeKey        = "bridge:call:active"

	// Sessions expire on their own if a disconnect callback never arrives
	sessionTTL = 4 * time.Hour
)

// RedisRegistry stores call sessions in Redis so the active call survives
// worker restarts and control operations work from any worker.
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry creates a registry backed by the given client
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func sessionKey(callConnectionID string) string {
	return sessionKeyPrefix + callConnectionID
}

// Put inserts or replaces a call session
func (r *RedisRegistry) Put(ctx context.Context, session domain.CallSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode call session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.CallConnectionID), payload, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store call session: %w", err)
	}
	return nil
}

// Get returns the session for the id, or ErrNotFound
func (r *RedisRegistry) Get(ctx context.Context, callConnectionID string) (domain.CallSession, error) {
	raw, err := r.client.Get(ctx, sessionKey(callConnectionID)).Bytes()
	if err == redis.Nil {
		return domain.CallSession{}, ErrNotFound
	}
	if err != nil {
		return domain.CallSession{}, fmt.Errorf("failed to load call session: %w", err)
	}

	var session domain.CallSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.CallSession{}, fmt.Errorf("failed to decode call session: %w", err)
	}
	return session, nil
}

// Remove deletes the session and clears the active id if it matches
func (r *RedisRegistry) Remove(ctx context.Context, callConnectionID string) error {
	if err := r.client.Del(ctx, sessionKey(callConnectionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete call session: %w", err)
	}

	current, err := r.client.Get(ctx, activeKey).Result()
	if err == nil && current == callConnectionID {
		if err := r.client.Del(ctx, activeKey).Err(); err != nil {
			return fmt.Errorf("failed to clear active call: %w", err)
		}
	} else if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read active call: %w", err)
	}
	return nil
}

// SetActive marks the call eligible for control operations
func (r *RedisRegistry) SetActive(ctx context.Context, callConnectionID string) error {
	if err := r.client.Set(ctx, activeKey, callConnectionID, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to set active call: %w", err)
	}
	return nil
}

// Active returns the active call connection id, or ""
func (r *RedisRegistry) Active(ctx context.Context) (string, error) {
	id, err := r.client.Get(ctx, activeKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read active call: %w", err)
	}
	return id, nil
}

// ClearActive forgets the active call id
func (r *RedisRegistry) ClearActive(ctx context.Context) error {
	if err := r.client.Del(ctx, activeKey).Err(); err != nil {
		return fmt.Errorf("failed to clear active call: %w", err)
	}
	return nil
}
