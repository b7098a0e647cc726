package service

import (
	"sync"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"golang.org/x/time/rate"
)

// LoginLimit bounds login attempts per identifier.
type LoginLimit struct {
	// Attempts is the number of attempts allowed per Window
	Attempts int
	Window   time.Duration
	// Burst allows that many attempts back to back before the rate applies
	Burst int
}

// DefaultLoginLimit allows 5 attempts per minute, all 5 available at once.
var DefaultLoginLimit = LoginLimit{Attempts: 5, Window: time.Minute, Burst: 5}

// LoginLimiter throttles login attempts keyed by normalised identifier.
// Unknown identifiers are throttled exactly like known ones, so the limiter
// reveals nothing about which accounts exist.
type LoginLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	refill   time.Duration // time for an empty bucket to fill up

	mu          sync.Mutex
	lastCleanup time.Time
}

func NewLoginLimiter(cfg LoginLimit) *LoginLimiter {
	if cfg.Attempts <= 0 || cfg.Window <= 0 {
		cfg = DefaultLoginLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Attempts
	}
	r := rate.Limit(float64(cfg.Attempts) / cfg.Window.Seconds())
	return &LoginLimiter{
		rate:        r,
		burst:       cfg.Burst,
		refill:      time.Duration(float64(cfg.Window) * float64(cfg.Burst) / float64(cfg.Attempts)),
		lastCleanup: time.Now(),
	}
}

// AllowAt reports whether an attempt for identifier at now is within the
// limit, consuming one token if it is.
func (l *LoginLimiter) AllowAt(now time.Time, identifier string) bool {
	return l.AllowSeededAt(now, identifier, nil)
}

// History returns the times of failed attempts for identifier recorded
// since the given instant, oldest first.
type History func(identifier string, since time.Time) []time.Time

// AllowSeededAt is AllowAt for limiters shared across processes through a
// durable record. The first time this limiter sees identifier, every
// failure history reports within one refill period is charged to the new
// bucket at the moment it happened, so the bucket resumes where the last
// process left it.
func (l *LoginLimiter) AllowSeededAt(now time.Time, identifier string, history History) bool {
	key := domain.NormalizeIdentifier(identifier)
	return l.limiter(key, func(lim *rate.Limiter) {
		if history == nil {
			return
		}
		for _, at := range history(key, now.Add(-l.refill)) {
			lim.AllowN(at, 1)
		}
	}).AllowN(now, 1)
}

func (l *LoginLimiter) limiter(key string, seed func(*rate.Limiter)) *rate.Limiter {
	if lim, ok := l.limiters.Load(key); ok {
		return lim.(*rate.Limiter)
	}

	lim := rate.NewLimiter(l.rate, l.burst)
	seed(lim)
	actual, _ := l.limiters.LoadOrStore(key, lim)

	l.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose bucket has refilled, at most once every
// five minutes.
func (l *LoginLimiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = time.Now()

	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}
