package ratelimit

import (
    "context"
    "sync"
    "time"
)

// windowEntry is one fixed-window counter.
type windowEntry struct {
    start time.Time
    count int
}

// MemoryStore keeps counters in-process.  State is restart-losable by
// design; stale entries linger until their key is touched again, which
// bounds memory growth by distinct-key churn.
type MemoryStore struct {
    mu      sync.Mutex
    entries map[string]*windowEntry
    now     func() time.Time
}

// NewMemoryStore returns an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{entries: make(map[string]*windowEntry), now: time.Now}
}

// Incr counts one request against key.  The increment-compare-reset sequence
// runs under the store lock, so two racing requests on the same key can
// never both slip past the limit through a lost update.
func (s *MemoryStore) Incr(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
    s.mu.Lock()
    defer s.mu.Unlock()

    now := s.now()
    e, ok := s.entries[key]
    if !ok || now.Sub(e.start) >= window {
        e = &windowEntry{start: now}
        s.entries[key] = e
    }
    e.count++

    d := Decision{Limit: limit, Allowed: e.count <= limit}
    if remaining := limit - e.count; remaining > 0 {
        d.Remaining = remaining
    }
    if !d.Allowed {
        d.RetryAfter = e.start.Add(window).Sub(now)
    }
    return d, nil
}
