// Package ratelimit implements fixed-window request counting.  Each
// protected route declares a rule (limit + window); counters are keyed by
// client address, composed with the subject identity when one is known, so
// a single user cannot evade a per-user limit by rotating addresses while
// anonymous abuse stays bounded per address.
//
// Two counter stores exist: an in-process store for single-node deployments
// and a Redis store that shares counters across replicas.  Window expiry is
// lazy in both — a key resets the first time it is touched after its window
// elapsed, there is no background sweep.
package ratelimit

import (
    "context"
    "strings"
    "time"
)

// Rule describes the limit applied to a group of routes.  Prefix is matched
// against the request path; an empty Prefix makes the rule the default.
// Methods restricts the rule to specific HTTP methods (nil means all).
type Rule struct {
    Name    string
    Prefix  string
    Methods map[string]bool
    Limit   int
    Window  time.Duration
}

// matches reports whether the rule applies to the given request line.
func (r Rule) matches(method, path string) bool {
    if r.Prefix != "" && !strings.HasPrefix(path, r.Prefix) {
        return false
    }
    if r.Methods != nil && !r.Methods[method] {
        return false
    }
    return true
}

// Decision is the outcome of one admission check.
type Decision struct {
    Allowed    bool
    Limit      int
    Remaining  int
    RetryAfter time.Duration
}

// Store counts requests per key inside a fixed window.  Incr must perform
// the read-modify-write atomically per key: concurrent requests on the same
// key may not lose updates.
type Store interface {
    Incr(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// Limiter matches requests to rules and consults the counter store.
type Limiter struct {
    store  Store
    prefix string
    def    Rule
    rules  []Rule
}

// New builds a limiter.  def is the application-wide default rule; rules are
// evaluated in order and the first match wins.
func New(store Store, prefix string, def Rule, rules []Rule) *Limiter {
    if def.Limit < 1 {
        def.Limit = 1
    }
    if def.Window <= 0 {
        def.Window = time.Hour
    }
    return &Limiter{store: store, prefix: prefix, def: def, rules: rules}
}

// Match returns the rule governing a request line.
func (l *Limiter) Match(method, path string) Rule {
    for _, r := range l.rules {
        if r.matches(method, path) {
            return r
        }
    }
    return l.def
}

// Allow runs one admission check for the given rule, client address and
// optional subject identity.
func (l *Limiter) Allow(ctx context.Context, r Rule, addr, subject string) (Decision, error) {
    parts := []string{l.prefix, r.Name, "ip", addr}
    if subject != "" {
        parts = append(parts, "user", subject)
    }
    return l.store.Incr(ctx, strings.Join(parts, ":"), r.Limit, r.Window)
}

// DefaultRules returns the per-route rules the service ships with: tight
// limits on credential issuance, uploads and destructive operations, a
// looser one for the health check.  Everything else falls through to the
// default rule.
func DefaultRules() []Rule {
    return []Rule{
        {Name: "login", Prefix: "/login", Limit: 5, Window: time.Minute},
        {Name: "register", Prefix: "/register", Limit: 3, Window: time.Hour},
        {Name: "upload", Prefix: "/upload", Limit: 10, Window: time.Hour},
        {Name: "delete", Methods: map[string]bool{"DELETE": true}, Limit: 5, Window: time.Hour},
        {Name: "health", Prefix: "/healthz", Limit: 30, Window: time.Minute},
    }
}
