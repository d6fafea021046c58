// Package challenges records issued E-IMZO challenges in Redis.
//
// Records are write-only bookkeeping: the E-IMZO server remains the sole
// authority on whether a challenge is valid, and nothing here reads them back
// during login.
package challenges

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix is prepended to the challenge string to form the Redis key.
const KeyPrefix = "eimzo:challenge:"

// DefaultTTL applies when the upstream did not report a positive ttl.
const DefaultTTL = 5 * time.Minute

// Record is the JSON value stored under each key.
type Record struct {
	Challenge string    `json:"challenge"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore writes challenge records with SETEX.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Options holds the connection settings for NewRedisClient.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient builds a go-redis client for a single node or cluster.
func NewRedisClient(opts Options) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{opts.Addr},
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Key returns the Redis key for challenge.
func Key(challenge string) string {
	return KeyPrefix + challenge
}

// Put stores challenge for ttl.
func (s *RedisStore) Put(ctx context.Context, challenge string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	value, err := json.Marshal(Record{Challenge: challenge, CreatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode challenge record: %w", err)
	}

	if err := s.client.SetEx(ctx, Key(challenge), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis setex: %w", err)
	}

	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type discard struct{}

func (discard) Put(context.Context, string, time.Duration) error { return nil }

// Discard accepts and drops every challenge. It is used when no Redis is
// configured.
var Discard = discard{}
