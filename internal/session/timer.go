package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Remaining is the time left until deadline as seen at now, clamped at zero.
func Remaining(now, deadline time.Time) time.Duration {
	if d := deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// ClockOffset is how far the server clock is ahead of the local one, measured
// from a server timestamp received at localNow.
func ClockOffset(serverTime, localNow time.Time) time.Duration {
	if serverTime.IsZero() {
		return 0
	}
	return serverTime.Sub(localNow)
}

type CountdownConfig struct {
	Deadline time.Time
	// Offset corrects the local clock towards the server's (see ClockOffset).
	Offset time.Duration
	Tick   time.Duration
	Now    func() time.Time

	// OnTick receives the remaining time on every tick, zero included.
	OnTick func(remaining time.Duration)
	// OnExpire runs once, in its own goroutine, when the remaining time hits zero.
	OnExpire func(ctx context.Context) error
	// OnExpireFailed receives the last error once retries are exhausted.
	OnExpireFailed func(err error)

	MaxAttempts int
	RetryDelay  time.Duration
	// ShouldRetry reports whether a failed OnExpire call is worth repeating.
	// Nil retries every error.
	ShouldRetry func(err error) bool
}

// Countdown re-derives the remaining time from the deadline on every tick, so
// a suspended or throttled tick loop never drifts. Expiry fires at most once.
type Countdown struct {
	cfg   CountdownConfig
	fired atomic.Bool
	wg    sync.WaitGroup
}

func NewCountdown(cfg CountdownConfig) *Countdown {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Countdown{cfg: cfg}
}

// Remaining is the time left right now.
func (c *Countdown) Remaining() time.Duration {
	return Remaining(c.cfg.Now().Add(c.cfg.Offset), c.cfg.Deadline)
}

// Fired reports whether expiry has fired or the countdown was disarmed.
func (c *Countdown) Fired() bool {
	return c.fired.Load()
}

// Disarm stops a future expiry from firing, e.g. after a manual final submit.
// It reports false if expiry had already fired.
func (c *Countdown) Disarm() bool {
	return c.fired.CompareAndSwap(false, true)
}

// Run ticks until ctx is cancelled or the deadline is reached. It returns as
// soon as expiry fires; the OnExpire call keeps running until it succeeds,
// exhausts its attempts or ctx is cancelled. Use Wait to join it.
func (c *Countdown) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	for {
		if c.tick(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Countdown) tick(ctx context.Context) (done bool) {
	remaining := c.Remaining()
	if c.cfg.OnTick != nil {
		c.cfg.OnTick(remaining)
	}
	if remaining > 0 {
		return false
	}
	if c.fired.CompareAndSwap(false, true) {
		c.wg.Add(1)
		go c.expire(ctx)
	}
	return true
}

func (c *Countdown) expire(ctx context.Context) {
	defer c.wg.Done()
	if c.cfg.OnExpire == nil {
		return
	}

	if err := c.retryExpire(ctx); err != nil && c.cfg.OnExpireFailed != nil {
		c.cfg.OnExpireFailed(err)
	}
}

func (c *Countdown) retryExpire(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := c.cfg.OnExpire(ctx)
		if err == nil {
			return nil
		}
		if attempt >= c.cfg.MaxAttempts || (c.cfg.ShouldRetry != nil && !c.cfg.ShouldRetry(err)) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.RetryDelay * time.Duration(attempt)):
		}
	}
}

// Wait blocks until a fired OnExpire call has finished.
func (c *Countdown) Wait() {
	c.wg.Wait()
}
