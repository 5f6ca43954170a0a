package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExactLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// N requests inside the window are admitted, the (N+1)th is not.
	for i := 0; i < 5; i++ {
		d, err := s.Incr(ctx, "k", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should be admitted", i+1)
	}
	d, err := s.Incr(ctx, "k", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}

func TestMemoryStoreWindowReset(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Incr(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
	}
	d, _ := s.Incr(ctx, "k", 2, time.Minute)
	assert.False(t, d.Allowed)

	// The first access after the window elapses resets the counter lazily.
	now = now.Add(time.Minute + time.Second)
	d, err := s.Incr(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestMemoryStoreKeysIndependent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	d, _ := s.Incr(ctx, "a", 1, time.Minute)
	assert.True(t, d.Allowed)
	d, _ = s.Incr(ctx, "a", 1, time.Minute)
	assert.False(t, d.Allowed)

	d, _ = s.Incr(ctx, "b", 1, time.Minute)
	assert.True(t, d.Allowed, "a different key has its own counter")
}

func TestRedisStoreExactLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := s.Incr(ctx, "rl:k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i+1)
	}
	d, err := s.Incr(ctx, "rl:k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestRedisStoreWindowReset(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb)
	ctx := context.Background()

	d, err := s.Incr(ctx, "rl:k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, _ = s.Incr(ctx, "rl:k", 1, time.Minute)
	assert.False(t, d.Allowed)

	mr.FastForward(time.Minute + time.Second)

	d, err = s.Incr(ctx, "rl:k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiterRuleMatching(t *testing.T) {
	l := New(NewMemoryStore(), "rl",
		Rule{Name: "default", Limit: 100, Window: time.Hour},
		DefaultRules())

	assert.Equal(t, "login", l.Match("POST", "/login").Name)
	assert.Equal(t, "register", l.Match("POST", "/register").Name)
	assert.Equal(t, "upload", l.Match("POST", "/upload").Name)
	assert.Equal(t, "delete", l.Match("DELETE", "/products/9").Name)
	assert.Equal(t, "health", l.Match("GET", "/healthz").Name)
	assert.Equal(t, "default", l.Match("GET", "/products").Name)
	// A GET against /products is not governed by the delete rule.
	assert.Equal(t, "default", l.Match("PUT", "/products/9").Name)
}

func TestLimiterSubjectComposesKey(t *testing.T) {
	l := New(NewMemoryStore(), "rl",
		Rule{Name: "default", Limit: 1, Window: time.Hour}, nil)
	ctx := context.Background()
	rule := l.Match("GET", "/products")

	d, err := l.Allow(ctx, rule, "10.0.0.1", "7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Same address, different subject: separate counter.
	d, err = l.Allow(ctx, rule, "10.0.0.1", "8")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, rule, "10.0.0.1", "7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}
