package blockguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFlag shares the block flag between processes through Redis. The key
// carries its own TTL, so a crashed agent never leaves a stale block behind.
type RedisFlag struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisFlag connects a client for the flag at key (default
// "listing-agent:block").
func NewRedisFlag(addr, key string) *RedisFlag {
	if key == "" {
		key = "listing-agent:block"
	}
	return &RedisFlag{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
		now:    time.Now,
	}
}

// Close closes the Redis client.
func (f *RedisFlag) Close() error {
	return f.client.Close()
}

// Status reads the flag; a missing or expired key reads as lowered.
func (f *RedisFlag) Status(ctx context.Context) (Status, error) {
	val, err := f.client.Get(ctx, f.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("read block flag: %w", err)
	}
	var s Status
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return Status{}, fmt.Errorf("decode block flag: %w", err)
	}
	if !s.Until.After(f.now()) {
		return Status{}, nil
	}
	s.Blocked = true
	return s, nil
}

// Raise raises or widens the flag. The key expiry tracks the block deadline
// so Redis itself lowers the flag on time.
func (f *RedisFlag) Raise(ctx context.Context, source string, ttl time.Duration) (Status, error) {
	current, err := f.Status(ctx)
	if err != nil {
		return Status{}, err
	}
	now := f.now()
	s := widen(current, Status{Blocked: true, Until: now.Add(ttl), Source: source}, now)
	payload, err := json.Marshal(s)
	if err != nil {
		return Status{}, fmt.Errorf("encode block flag: %w", err)
	}
	if err := f.client.Set(ctx, f.key, payload, s.Until.Sub(now)).Err(); err != nil {
		return Status{}, fmt.Errorf("write block flag: %w", err)
	}
	return s, nil
}

// Release deletes the flag key.
func (f *RedisFlag) Release(ctx context.Context) error {
	if err := f.client.Del(ctx, f.key).Err(); err != nil {
		return fmt.Errorf("release block flag: %w", err)
	}
	return nil
}
