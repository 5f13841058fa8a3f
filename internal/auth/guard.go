package auth

import (
	"sync"
	"time"
)

// FailureGuard locks out client IPs after repeated invalid bearer tokens.
type FailureGuard struct {
	mu              sync.Mutex
	attempts        map[string]*attemptRecord
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	now             func() time.Time
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

type FailureGuardConfig struct {
	MaxAttempts     int           // Failures before lockout (default: 10)
	WindowDuration  time.Duration // Window for counting failures (default: 15m)
	LockoutDuration time.Duration // Lockout length (default: 15m)
}

func DefaultFailureGuardConfig() FailureGuardConfig {
	return FailureGuardConfig{
		MaxAttempts:     10,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 15 * time.Minute,
	}
}

func NewFailureGuard(cfg FailureGuardConfig) *FailureGuard {
	def := DefaultFailureGuardConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = def.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	return &FailureGuard{
		attempts:        make(map[string]*attemptRecord),
		maxAttempts:     cfg.MaxAttempts,
		windowDuration:  cfg.WindowDuration,
		lockoutDuration: cfg.LockoutDuration,
		now:             time.Now,
	}
}

// Allow reports whether ip may try to authenticate, and if not, for how long
// it stays locked out.
func (g *FailureGuard) Allow(ip string) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	record, ok := g.attempts[ip]
	if !ok {
		return true, 0
	}
	now := g.now()
	if now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	if now.Sub(record.firstAttempt) > g.windowDuration+g.lockoutDuration {
		delete(g.attempts, ip)
	}
	return true, 0
}

// RecordFailure counts a failed attempt and reports whether ip is now locked.
func (g *FailureGuard) RecordFailure(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	record, ok := g.attempts[ip]
	if !ok || now.Sub(record.firstAttempt) > g.windowDuration {
		record = &attemptRecord{firstAttempt: now}
		g.attempts[ip] = record
	}

	record.count++
	if record.count >= g.maxAttempts {
		record.lockedUntil = now.Add(g.lockoutDuration)
		return true
	}
	return false
}

// RecordSuccess clears the failure record for ip.
func (g *FailureGuard) RecordSuccess(ip string) {
	g.mu.Lock()
	delete(g.attempts, ip)
	g.mu.Unlock()
}
