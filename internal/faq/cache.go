// Package faq caches final answers to recurring stateless questions, keyed by
// a hash of the normalized question text and shared across threads.
package faq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/agente-usados/server/internal/core/error"
	"github.com/agente-usados/server/internal/intent"
	logx "github.com/agente-usados/server/pkg/logger"
)

// maxAnswerLen keeps personalized long replies (quote tables, option lists)
// out of the cache; only short generic answers are worth sharing.
const maxAnswerLen = 2000

// Cache is a Redis-backed exact-match answer cache.
type Cache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func New(rdb redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func key(question string) string {
	sum := sha256.Sum256([]byte(intent.Normalize(question)))
	return "faq:" + hex.EncodeToString(sum[:])
}

// Get returns a previously produced answer for the exact normalized question,
// or ok=false on a miss. Cache errors degrade to a miss; answering is more
// important than counting.
func (c *Cache) Get(ctx context.Context, question string) (string, bool) {
	k := key(question)
	answer, err := c.rdb.HGet(ctx, k, "answer").Result()
	if err != nil {
		if err != redis.Nil {
			logx.Warn().Err(err).Msg("FAQ cache read failed")
		}
		return "", false
	}
	if err := c.rdb.HIncrBy(ctx, k, "hits", 1).Err(); err != nil {
		logx.Warn().Err(err).Msg("FAQ cache hit count failed")
	}
	return answer, true
}

// Put stores a final answer under the normalized question. Oversized answers
// are skipped silently.
func (c *Cache) Put(ctx context.Context, question, answer string) error {
	if len(answer) == 0 || len(answer) > maxAnswerLen {
		return nil
	}
	k := key(question)
	if err := c.rdb.HSet(ctx, k, "answer", answer, "question", intent.Normalize(question)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	if c.ttl > 0 {
		if err := c.rdb.Expire(ctx, k, c.ttl).Err(); err != nil {
			return errx.WrapRedis(err)
		}
	}
	return nil
}
