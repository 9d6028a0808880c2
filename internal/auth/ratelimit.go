package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig bounds failed sign-in attempts per client address and email.
type RateLimitConfig struct {
	MaxAttempts     int
	WindowDuration  time.Duration
	LockoutDuration time.Duration
	CleanupInterval time.Duration
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = 15 * time.Minute
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return c
}

type loginKey struct {
	ip    string
	email string
}

func newLoginKey(ip, email string) loginKey {
	return loginKey{ip: ip, email: strings.ToLower(strings.TrimSpace(email))}
}

// strikes counts failures inside one window. A non-zero until marks a lockout.
type strikes struct {
	since time.Time
	count int
	until time.Time
}

func (s *strikes) lockedAt(now time.Time) bool {
	return !s.until.IsZero() && now.Before(s.until)
}

// RateLimiter throttles POST /auth/login. Entries expire once both their
// window and their lockout have passed.
type RateLimiter struct {
	cfg  RateLimitConfig
	now  func() time.Time
	stop chan struct{}
	once sync.Once

	mu      sync.Mutex
	entries map[loginKey]*strikes
}

// NewRateLimiter starts a limiter and its background pruning loop. Call Stop
// to end the loop.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		stop:    make(chan struct{}),
		entries: make(map[loginKey]*strikes),
	}
	go rl.pruneLoop()
	return rl
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// Allow reports whether another attempt may be made and, if not, how long
// the caller has to wait.
func (rl *RateLimiter) Allow(ip, email string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	s, ok := rl.entries[newLoginKey(ip, email)]
	switch {
	case !ok:
		return true, 0
	case s.lockedAt(now):
		return false, s.until.Sub(now)
	case now.Sub(s.since) > rl.cfg.WindowDuration, s.count < rl.cfg.MaxAttempts:
		return true, 0
	default:
		return false, rl.cfg.LockoutDuration
	}
}

// RecordFailure counts a rejected sign-in and reports whether it tripped
// the lockout.
func (rl *RateLimiter) RecordFailure(ip, email string) (bool, time.Duration) {
	now := rl.now()
	key := newLoginKey(ip, email)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	s, ok := rl.entries[key]
	if !ok || now.Sub(s.since) > rl.cfg.WindowDuration {
		s = &strikes{since: now}
		rl.entries[key] = s
	}
	s.count++
	if s.count < rl.cfg.MaxAttempts {
		return false, 0
	}
	s.until = now.Add(rl.cfg.LockoutDuration)
	return true, rl.cfg.LockoutDuration
}

// RecordSuccess forgets earlier failures for the pair.
func (rl *RateLimiter) RecordSuccess(ip, email string) {
	rl.mu.Lock()
	delete(rl.entries, newLoginKey(ip, email))
	rl.mu.Unlock()
}

func (rl *RateLimiter) pruneLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

func (rl *RateLimiter) prune() {
	now := rl.now()
	horizon := rl.cfg.WindowDuration + rl.cfg.LockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, s := range rl.entries {
		if now.Sub(s.since) > horizon && !s.lockedAt(now) {
			delete(rl.entries, key)
		}
	}
}

// RateLimitMiddleware rejects locked-out sign-ins with 429 before the handler
// runs. The JSON body is restored for the handler after the email is read.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		email := peekEmail(c)
		if email == "" {
			c.Next()
			return
		}

		if ok, wait := rl.Allow(c.ClientIP(), email); !ok {
			c.Header("Retry-After", wait.String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many login attempts",
				"code":       "RATE_LIMITED",
				"retryAfter": wait.String(),
			})
			return
		}
		c.Next()
	}
}

func peekEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.Email
}
