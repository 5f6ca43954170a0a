// Package abuse implements the heuristic request filter that runs ahead of
// routing.  It accumulates strikes per client address — for implausible
// identification headers, injection-looking payloads and bursts against
// sensitive paths — and escalates to a timed block once the strike threshold
// is reached.  The filter is best-effort and in-process: it complements the
// rate limiter, it does not replace it, and either component rejecting a
// request is sufficient to reject it.
package abuse

import (
    "log"
    "regexp"
    "strings"
    "sync"
    "time"

    "github.com/quimitrack/chem-registry/internal/config"
)

// injectionPatterns is the fixed signature list matched case-insensitively
// against the query string and request body.  Any match is a strike and
// short-circuits to rejection regardless of the target route.
var injectionPatterns = []*regexp.Regexp{
    regexp.MustCompile(`(?i)union.*select`),
    regexp.MustCompile(`(?i)select.*from`),
    regexp.MustCompile(`(?i)insert.*into`),
    regexp.MustCompile(`(?i)delete.*from`),
    regexp.MustCompile(`(?i)drop.*table`),
    regexp.MustCompile(`--`),
    regexp.MustCompile(`/\*`),
    regexp.MustCompile(`(?i)waitfor.*delay`),
    regexp.MustCompile(`(?i)xp_cmdshell`),
}

// sensitivePrefixes lists the path prefixes where burst frequency counts as
// a strike: authentication, uploads and record mutation endpoints.
var sensitivePrefixes = []string{
    "/login",
    "/register",
    "/upload",
    "/users",
    "/products",
    "/pdfs",
}

// Verdict is the outcome of inspecting one request.
type Verdict struct {
    Blocked    bool          // address is under a timed block; reject with 429
    RetryAfter time.Duration // remaining block time, for the Retry-After hint
    Suspicious bool          // request earned a strike; reject without processing
    Reason     string        // short description for the security log
}

// Filter holds the per-address strike and block tables.  All checks for one
// request run under the filter lock, so concurrent requests from the same
// address cannot lose strike updates.
type Filter struct {
    cfg config.AbuseConfig

    mu           sync.Mutex
    strikes      map[string]int
    blockedUntil map[string]time.Time
    recent       map[string][]time.Time
    now          func() time.Time
}

// New builds a filter from its configuration.
func New(cfg config.AbuseConfig) *Filter {
    return &Filter{
        cfg:          cfg,
        strikes:      make(map[string]int),
        blockedUntil: make(map[string]time.Time),
        recent:       make(map[string][]time.Time),
        now:          time.Now,
    }
}

// Check inspects one request.  body may be a truncated prefix of the real
// payload; the signatures it looks for appear early in injection attempts.
func (f *Filter) Check(addr, method, path, userAgent, query string, body []byte) Verdict {
    f.mu.Lock()
    defer f.mu.Unlock()

    now := f.now()

    // An address under a timed block is rejected outright, independent of
    // the rate limiter.  Expired blocks are cleared lazily on access.
    if until, ok := f.blockedUntil[addr]; ok {
        if now.Before(until) {
            return Verdict{Blocked: true, RetryAfter: until.Sub(now)}
        }
        delete(f.blockedUntil, addr)
    }

    if len(userAgent) < f.cfg.MinUserAgentLen {
        return f.strike(addr, now, "missing or implausible User-Agent")
    }

    if matchesInjection(query) || matchesInjection(string(body)) {
        return f.strike(addr, now, "injection signature in request")
    }

    if isSensitive(path) && f.highFrequency(addr, now) {
        return f.strike(addr, now, "burst frequency on sensitive path "+method+" "+path)
    }

    return Verdict{}
}

// strike records one unit of suspicion and escalates to a block when the
// threshold is reached.  The strike counter resets after a block so the
// address starts clean once the penalty expires.
func (f *Filter) strike(addr string, now time.Time, reason string) Verdict {
    log.Printf("abuse: suspicious activity from %s: %s", addr, reason)
    f.strikes[addr]++
    if f.strikes[addr] >= f.cfg.MaxStrikes {
        f.blockedUntil[addr] = now.Add(f.cfg.BlockDuration)
        delete(f.strikes, addr)
        log.Printf("abuse: address %s blocked for %s", addr, f.cfg.BlockDuration)
        return Verdict{Blocked: true, RetryAfter: f.cfg.BlockDuration, Reason: reason}
    }
    return Verdict{Suspicious: true, Reason: reason}
}

// highFrequency appends the current request timestamp for addr and reports
// whether more than BurstLimit requests arrived within the rolling window.
func (f *Filter) highFrequency(addr string, now time.Time) bool {
    kept := f.recent[addr][:0]
    for _, t := range f.recent[addr] {
        if now.Sub(t) < f.cfg.BurstWindow {
            kept = append(kept, t)
        }
    }
    kept = append(kept, now)
    f.recent[addr] = kept
    return len(kept) > f.cfg.BurstLimit
}

func matchesInjection(s string) bool {
    if s == "" {
        return false
    }
    for _, re := range injectionPatterns {
        if re.MatchString(s) {
            return true
        }
    }
    return false
}

func isSensitive(path string) bool {
    for _, p := range sensitivePrefixes {
        if strings.HasPrefix(path, p) {
            return true
        }
    }
    return false
}
