package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	errx "github.com/agente-usados/server/internal/core/error"
	logx "github.com/agente-usados/server/pkg/logger"
)

// Repository persists per-thread data: the message history the chat model
// sees and the qualification state the policy engine works from.
type Repository interface {
	// AddMessage appends a message to the thread history.
	AddMessage(ctx context.Context, threadID string, message *schema.Message) error

	// LoadHistory retrieves the full thread history, oldest first.
	LoadHistory(ctx context.Context, threadID string) (*History, error)

	// LoadState retrieves the qualification state; a fresh thread gets the
	// zero state.
	LoadState(ctx context.Context, threadID string) (*State, error)

	// SaveState checkpoints the qualification state after a turn.
	SaveState(ctx context.Context, threadID string, state *State) error

	// ClearThread removes both history and state for a thread.
	ClearThread(ctx context.Context, threadID string) error
}

// History is loaded thread history with metadata.
type History struct {
	ThreadID string
	Messages []*schema.Message
}

// RedisRepository stores history as a message list and state as a JSON blob,
// both under the same TTL extended on touch.
type RedisRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisRepository(rdb redis.Cmdable, ttl time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisRepository) messagesKey(threadID string) string {
	return fmt.Sprintf("conversation:%s:messages", threadID)
}

func (r *RedisRepository) stateKey(threadID string) string {
	return fmt.Sprintf("conversation:%s:state", threadID)
}

func (r *RedisRepository) AddMessage(ctx context.Context, threadID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("threadID", threadID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.messagesKey(threadID)

	// append message
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	return r.touch(ctx, key)
}

func (r *RedisRepository) LoadHistory(ctx context.Context, threadID string) (*History, error) {
	key := r.messagesKey(threadID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return &History{ThreadID: threadID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load thread history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("threadID", threadID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &History{ThreadID: threadID, Messages: msgs}, nil
}

func (r *RedisRepository) LoadState(ctx context.Context, threadID string) (*State, error) {
	key := r.stateKey(threadID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return &State{Phase: PhaseNew}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load thread state from redis")
		return nil, errx.WrapRedis(err)
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// A corrupted checkpoint must not brick the thread; start over.
		logx.Warn().Err(err).Str("threadID", threadID).Msg("discarding unreadable thread state")
		return &State{Phase: PhaseNew}, nil
	}
	return &state, nil
}

func (r *RedisRepository) SaveState(ctx context.Context, threadID string, state *State) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	key := r.stateKey(threadID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save thread state to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisRepository) ClearThread(ctx context.Context, threadID string) error {
	if err := r.rdb.Del(ctx, r.messagesKey(threadID), r.stateKey(threadID)).Err(); err != nil {
		logx.Error().Err(err).Str("threadID", threadID).Msg("failed to delete thread from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// touch extends the TTL so active threads stay alive and idle ones expire.
func (r *RedisRepository) touch(ctx context.Context, key string) error {
	if r.ttl <= 0 {
		return nil
	}
	ok, err := r.rdb.Expire(ctx, key, r.ttl).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
		return errx.WrapRedis(err)
	}
	if !ok {
		logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
	}
	return nil
}

var _ Repository = (*RedisRepository)(nil)
