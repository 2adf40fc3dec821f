package command

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/zephyrtronium/toothy/syncmap"
)

// Cooldown is a per-user rate limit on a command.
// Each user gets a token bucket allowing a number of uses over a period.
type Cooldown struct {
	uses    int
	per     time.Duration
	buckets *syncmap.Map[string, *rate.Limiter]
}

// NewCooldown creates a cooldown allowing uses invocations per period.
func NewCooldown(uses int, per time.Duration) *Cooldown {
	if uses < 1 || per <= 0 {
		panic("command: cooldown needs positive uses and period")
	}
	return &Cooldown{
		uses:    uses,
		per:     per,
		buckets: syncmap.New[string, *rate.Limiter](),
	}
}

func (c *Cooldown) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(c.per/time.Duration(c.uses)), c.uses)
}

// Take consumes a use for a user at the given time. If the user is on
// cooldown, no use is consumed and the result is the time until the next use
// is available; otherwise it is zero.
func (c *Cooldown) Take(user string, now time.Time) time.Duration {
	if c == nil {
		return 0
	}
	l, _ := c.buckets.LoadOrStore(user, c.limiter)
	r := l.ReserveN(now, 1)
	if !r.OK() {
		return c.per
	}
	d := r.DelayFrom(now)
	if d > 0 {
		r.CancelAt(now)
		return d
	}
	return 0
}

// Reset forgets a user's uses.
func (c *Cooldown) Reset(user string) {
	if c == nil {
		return
	}
	c.buckets.Delete(user)
}

// Sweep forgets users whose buckets have refilled by the given time.
// It returns the number of users forgotten.
func (c *Cooldown) Sweep(now time.Time) int {
	if c == nil {
		return 0
	}
	return c.buckets.DeleteFunc(func(_ string, l *rate.Limiter) bool {
		return l.TokensAt(now) >= float64(l.Burst())
	})
}

// Len returns the number of users currently tracked.
func (c *Cooldown) Len() int {
	if c == nil {
		return 0
	}
	return c.buckets.Len()
}
