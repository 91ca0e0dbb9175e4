package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openpond/openpond-go/adapter/llm"
)

// RedisMemory retains conversation history in Redis.
//
// Features:
//   - History survives agent restarts
//   - Shared across agent instances
//   - Optional TTL for automatic expiry
//
// Redis data structure:
//   - Key: "{prefix}:{peer_id}:turns"
//   - Type: sorted set, score = timestamp
//   - Value: JSON-encoded chat turn
//
// Example:
//
//	mem, err := NewRedisMemory("redis://localhost:6379", 24*time.Hour, "openpond:memory")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = mem.Append(ctx, "peer-1", llm.Message{Role: llm.RoleUser, Content: "Hello"})
type RedisMemory struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	// monotonic tiebreaker so same-millisecond turns keep insertion order
	seq int64
}

// NewRedisMemory creates a Redis-backed history store. ttl of zero means
// no expiry.
func NewRedisMemory(redisURL string, ttl time.Duration, keyPrefix string) (*RedisMemory, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisMemoryWithClient(redis.NewClient(opts), ttl, keyPrefix), nil
}

// NewRedisMemoryWithClient creates a Redis-backed history store around an
// existing client.
func NewRedisMemoryWithClient(client *redis.Client, ttl time.Duration, keyPrefix string) *RedisMemory {
	if keyPrefix == "" {
		keyPrefix = "openpond:memory"
	}
	return &RedisMemory{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// peerKey returns the Redis key for a peer's history.
func (r *RedisMemory) peerKey(peerID string) string {
	return fmt.Sprintf("%s:%s:turns", r.keyPrefix, peerID)
}

// redisTurn is the stored representation of a chat turn. Seq keeps
// same-timestamp members distinct; sorted sets deduplicate by value.
type redisTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Seq     int64  `json:"seq"`
}

// Append records a chat turn for the peer.
func (r *RedisMemory) Append(ctx context.Context, peerID string, msg llm.Message) error {
	seq := atomic.AddInt64(&r.seq, 1)
	value, err := json.Marshal(redisTurn{Role: msg.Role, Content: msg.Content, Seq: seq})
	if err != nil {
		return fmt.Errorf("failed to serialize turn: %w", err)
	}

	key := r.peerKey(peerID)
	score := float64(time.Now().UnixNano()) / 1e9

	if err := r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: string(value)}).Err(); err != nil {
		return fmt.Errorf("failed to store turn: %w", err)
	}

	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set TTL: %w", err)
		}
	}
	return nil
}

// History returns up to limit of the most recent turns, oldest first.
func (r *RedisMemory) History(ctx context.Context, peerID string, limit int) ([]llm.Message, error) {
	key := r.peerKey(peerID)

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	values, err := r.client.ZRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	out := make([]llm.Message, 0, len(values))
	for _, value := range values {
		var turn redisTurn
		if err := json.Unmarshal([]byte(value), &turn); err != nil {
			return nil, fmt.Errorf("failed to deserialize turn: %w", err)
		}
		out = append(out, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return out, nil
}

// Clear removes all retained turns for the peer.
func (r *RedisMemory) Clear(ctx context.Context, peerID string) error {
	if err := r.client.Del(ctx, r.peerKey(peerID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
