package config

import "time"

// AbuseConfig tunes the heuristic request filter that runs ahead of routing.
// The defaults mirror the production values the service has been operated
// with: ten strikes trigger a fifteen-minute block, a burst is more than
// thirty requests per minute against a sensitive path, and a User-Agent
// shorter than ten bytes is treated as implausible.
type AbuseConfig struct {
    Enabled         bool
    MaxStrikes      int           // strikes before an address is blocked
    BlockDuration   time.Duration // how long a blocked address stays rejected
    BurstLimit      int           // requests per BurstWindow before a strike
    BurstWindow     time.Duration // rolling window for burst detection
    MinUserAgentLen int           // shorter User-Agent values count as a strike
}

func LoadAbuseConfig() AbuseConfig {
    cfg := AbuseConfig{
        Enabled:         envBool("ABUSE_FILTER_ENABLED", true),
        MaxStrikes:      envInt("ABUSE_MAX_STRIKES", 10),
        BlockDuration:   envDur("ABUSE_BLOCK_DURATION", 15*time.Minute),
        BurstLimit:      envInt("ABUSE_BURST_LIMIT", 30),
        BurstWindow:     envDur("ABUSE_BURST_WINDOW", time.Minute),
        MinUserAgentLen: envInt("ABUSE_MIN_USER_AGENT_LEN", 10),
    }
    if cfg.MaxStrikes < 1 { cfg.MaxStrikes = 1 }
    if cfg.BurstLimit < 1 { cfg.BurstLimit = 1 }
    if cfg.BurstWindow <= 0 { cfg.BurstWindow = time.Minute }
    if cfg.BlockDuration <= 0 { cfg.BlockDuration = 15 * time.Minute }
    return cfg
}
