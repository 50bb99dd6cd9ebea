package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Config holds configuration for the admission limiter.
type Config struct {
	// RateLimit is the number of admission waves per window.
	RateLimit int `mapstructure:"rate_limit" default:"5"`
	// MaxBurst is the maximum number of admissions per wave.
	MaxBurst int `mapstructure:"max_burst" default:"5"`
	// WindowMillis is the window size in milliseconds.
	WindowMillis int `mapstructure:"window_millis" default:"1000"`
}

// Window returns the window size as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.WindowMillis) * time.Millisecond
}

// Validate rejects configurations that would divide by zero or never admit.
func (c Config) Validate() error {
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %d", c.RateLimit)
	}
	if c.MaxBurst <= 0 {
		return fmt.Errorf("max_burst must be positive, got %d", c.MaxBurst)
	}
	if c.WindowMillis <= 0 {
		return fmt.Errorf("window_millis must be positive, got %d", c.WindowMillis)
	}
	return nil
}

// Limiter is a windowed admission controller. All counters live behind a
// single gate (a one-slot channel instead of sync.Mutex so that waits stay
// cancellable); holding the gate while sleeping is what serializes
// admission without serializing the admitted work.
type Limiter struct {
	gate chan struct{}

	window time.Duration
	wave   time.Duration
	burst  int

	windowStart time.Time
	events      int
}

// New builds a Limiter, validating the configuration first.
func New(cfg Config) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limiter config: %w", err)
	}

	l := &Limiter{
		gate:   make(chan struct{}, 1),
		window: cfg.Window(),
		wave:   cfg.Window() / time.Duration(cfg.RateLimit),
		burst:  cfg.MaxBurst,
	}
	l.gate <- struct{}{}
	return l, nil
}

// Acquire blocks the caller until the limiter admits it, or until ctx is
// cancelled. The limiter itself never fails; the only possible error is
// ctx.Err().
//
// Admission rules:
//   - the first ever call starts a window and is admitted;
//   - while the burst wave (window/rate) has time left and burst capacity
//     remains, admit and count;
//   - once the wave has elapsed, start a new window (counter reset to a
//     base of 2, the admitted caller included) and admit;
//   - otherwise sleep out the remainder of the full window, then admit
//     into a fresh one.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-l.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { l.gate <- struct{}{} }()

	now := time.Now()

	if l.windowStart.IsZero() {
		l.windowStart = now
		l.events = 1
		return nil
	}

	elapsed := now.Sub(l.windowStart)

	if elapsed >= l.wave {
		l.windowStart = now
		l.events = 2
		return nil
	}

	if l.events < l.burst {
		l.events++
		return nil
	}

	// Burst exhausted inside the wave: wait out the rest of the window
	// while holding the gate, so every queued caller lands in a later
	// window than this one.
	timer := time.NewTimer(l.window - elapsed)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.windowStart = time.Now()
	l.events = 2
	return nil
}
