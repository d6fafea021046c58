package challenges

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestPut_StoresRecordWithTTL(t *testing.T) {
	s, mr := newStore(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return created }

	require.NoError(t, s.Put(context.Background(), "abc", 300*time.Second))

	raw, err := mr.Get("eimzo:challenge:abc")
	require.NoError(t, err)

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, "abc", rec.Challenge)
	assert.True(t, created.Equal(rec.CreatedAt))
	assert.Equal(t, 300*time.Second, mr.TTL("eimzo:challenge:abc"))

	mr.FastForward(301 * time.Second)
	assert.False(t, mr.Exists("eimzo:challenge:abc"))
}

func TestPut_NonPositiveTTLUsesDefault(t *testing.T) {
	s, mr := newStore(t)

	require.NoError(t, s.Put(context.Background(), "zero", 0))
	assert.Equal(t, DefaultTTL, mr.TTL(Key("zero")))
}

func TestPut_RedisDown(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	err := s.Put(context.Background(), "abc", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis setex")
	assert.Error(t, s.Ping(context.Background()))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisClient(Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, NewRedisStore(c).Ping(context.Background()))
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Put(context.Background(), "abc", time.Minute))
}
