package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zsiec/arq/internal/logger"
)

// RedisRegistry implements Registry on redis. Records expire after the TTL
// unless refreshed by heartbeats, so crashed endpoints age out on their own.
type RedisRegistry struct {
	client *redis.Client
	logger logger.Logger
	prefix string
	ttl    time.Duration
}

// NewRedisRegistry creates a redis-backed registry.
func NewRedisRegistry(client *redis.Client, log logger.Logger, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisRegistry{
		client: client,
		logger: log.WithField("component", "registry"),
		prefix: "arq:sessions:",
		ttl:    ttl,
	}
}

// Register adds or refreshes a session record. An existing record keeps its
// original CreatedAt.
func (r *RedisRegistry) Register(ctx context.Context, session *Session) error {
	key := r.prefix + session.ID

	existing, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var prev Session
		if err := json.Unmarshal(existing, &prev); err == nil {
			session.CreatedAt = prev.CreatedAt
		}
	case err == redis.Nil:
		if session.CreatedAt.IsZero() {
			session.CreatedAt = time.Now()
		}
	default:
		return fmt.Errorf("failed to check existing session: %w", err)
	}
	session.LastHeartbeat = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, r.ttl)
	pipe.SAdd(ctx, r.prefix+"active", session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"session_id": session.ID,
		"role":       session.Role,
	}).Info("Session registered")
	return nil
}

// Unregister removes a session record.
func (r *RedisRegistry) Unregister(ctx context.Context, sessionID string) error {
	deleted, err := r.client.Del(ctx, r.prefix+sessionID).Result()
	if err != nil {
		return fmt.Errorf("failed to unregister session: %w", err)
	}
	if deleted == 0 {
		return ErrSessionNotFound
	}

	if err := r.client.SRem(ctx, r.prefix+"active", sessionID).Err(); err != nil {
		r.logger.WithError(err).Warn("Failed to remove session from active set")
	}

	r.logger.WithField("session_id", sessionID).Info("Session unregistered")
	return nil
}

// Get retrieves a session by ID.
func (r *RedisRegistry) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.Get(ctx, r.prefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// List returns all live sessions. IDs whose records have expired are pruned
// from the active set as a side effect.
func (r *RedisRegistry) List(ctx context.Context) ([]*Session, error) {
	ids, err := r.client.SMembers(ctx, r.prefix+"active").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(ids))
	var expired []interface{}
	for _, id := range ids {
		session, err := r.Get(ctx, id)
		if err == ErrSessionNotFound {
			expired = append(expired, id)
			continue
		}
		if err != nil {
			r.logger.WithError(err).WithField("session_id", id).Warn("Failed to load session")
			continue
		}
		sessions = append(sessions, session)
	}

	if len(expired) > 0 {
		if err := r.client.SRem(ctx, r.prefix+"active", expired...).Err(); err != nil {
			r.logger.WithError(err).Warn("Failed to prune expired sessions from active set")
		}
	}
	return sessions, nil
}

// UpdateHeartbeat refreshes LastHeartbeat and the record TTL atomically.
func (r *RedisRegistry) UpdateHeartbeat(ctx context.Context, sessionID string) error {
	script := redis.NewScript(`
		local key = KEYS[1]
		local ttl = tonumber(ARGV[1])
		local now = ARGV[2]
		local data = redis.call('GET', key)
		if not data then
			return redis.error_reply("session not found")
		end
		local session = cjson.decode(data)
		session.last_heartbeat = now
		redis.call('SET', key, cjson.encode(session), 'PX', ttl)
		return "OK"
	`)

	_, err := script.Run(ctx, r.client, []string{r.prefix + sessionID},
		r.ttl.Milliseconds(), time.Now().Format(time.RFC3339Nano)).Result()
	if err != nil {
		if err == redis.Nil || strings.Contains(err.Error(), "session not found") {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	return nil
}

// UpdateStatus transitions a session's lifecycle state atomically.
func (r *RedisRegistry) UpdateStatus(ctx context.Context, sessionID string, status SessionStatus) error {
	script := redis.NewScript(`
		local key = KEYS[1]
		local ttl = tonumber(ARGV[1])
		local status = ARGV[2]
		local now = ARGV[3]
		local data = redis.call('GET', key)
		if not data then
			return redis.error_reply("session not found")
		end
		local session = cjson.decode(data)
		session.status = status
		session.last_heartbeat = now
		redis.call('SET', key, cjson.encode(session), 'PX', ttl)
		return "OK"
	`)

	_, err := script.Run(ctx, r.client, []string{r.prefix + sessionID},
		r.ttl.Milliseconds(), string(status), time.Now().Format(time.RFC3339Nano)).Result()
	if err != nil {
		if err == redis.Nil || strings.Contains(err.Error(), "session not found") {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to update status: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"session_id": sessionID,
		"status":     status,
	}).Debug("Session status updated")
	return nil
}

// UpdateStats stores a fresh counter snapshot atomically.
func (r *RedisRegistry) UpdateStats(ctx context.Context, sessionID string, stats SessionStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	script := redis.NewScript(`
		local key = KEYS[1]
		local ttl = tonumber(ARGV[1])
		local stats = ARGV[2]
		local now = ARGV[3]
		local data = redis.call('GET', key)
		if not data then
			return redis.error_reply("session not found")
		end
		local session = cjson.decode(data)
		session.stats = cjson.decode(stats)
		session.last_heartbeat = now
		redis.call('SET', key, cjson.encode(session), 'PX', ttl)
		return "OK"
	`)

	_, err = script.Run(ctx, r.client, []string{r.prefix + sessionID},
		r.ttl.Milliseconds(), string(statsJSON), time.Now().Format(time.RFC3339Nano)).Result()
	if err != nil {
		if err == redis.Nil || strings.Contains(err.Error(), "session not found") {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to update stats: %w", err)
	}
	return nil
}

// Close closes the underlying redis client.
func (r *RedisRegistry) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
