// Package throttle wraps calls to remote APIs with inter-call spacing and
// retry with backoff.
package throttle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Config controls spacing and retry behaviour of a Client.
type Config struct {
	Name       string        // used in log lines
	Delay      time.Duration // minimum spacing between attempt starts
	MaxRetries int           // total attempts, including the first
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Classify reports whether err is a rate-limit/availability failure.
	// Defaults to IsRateLimited.
	Classify func(error) bool
}

// Client enforces Config for every operation passed to Do. A single Client
// is safe for concurrent use; admission is serialized so that the spacing
// holds across interleaved callers.
type Client struct {
	cfg Config

	mu       sync.Mutex
	lastCall time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client, filling zero fields with the defaults used for the
// vision endpoint.
func New(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 3 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	if cfg.Classify == nil {
		cfg.Classify = IsRateLimited
	}
	return &Client{cfg: cfg, now: time.Now, sleep: sleepContext}
}

// Do runs op under c's throttle and retry policy and returns its result.
// After MaxRetries failed attempts the last error is returned unchanged.
// Context cancellation aborts waits immediately and is never retried.
func Do[T any](ctx context.Context, c *Client, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.admit(ctx); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, err
		}
		if attempt == c.cfg.MaxRetries-1 {
			break
		}

		delay := c.backoff(attempt, err)
		slog.Warn("remote call failed, retrying",
			"client", c.cfg.Name,
			"attempt", attempt+1,
			"max_attempts", c.cfg.MaxRetries,
			"delay_ms", delay.Milliseconds(),
			"rate_limited", c.cfg.Classify(err),
			"error", err,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return zero, errors.Join(lastErr, err)
		}
	}

	slog.Error("remote call failed after all attempts",
		"client", c.cfg.Name,
		"attempts", c.cfg.MaxRetries,
		"error", lastErr,
	)
	return zero, lastErr
}

// admit blocks until Delay has passed since the previous attempt started,
// then records now as the latest start.
func (c *Client) admit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastCall.IsZero() {
		if wait := c.cfg.Delay - c.now().Sub(c.lastCall); wait > 0 {
			slog.Debug("throttling remote call", "client", c.cfg.Name, "wait_ms", wait.Milliseconds())
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	c.lastCall = c.now()
	return nil
}

// backoff returns the sleep before the next attempt. attempt is zero-based.
func (c *Client) backoff(attempt int, err error) time.Duration {
	if !c.cfg.Classify(err) {
		return min(c.cfg.BaseDelay, c.cfg.MaxDelay)
	}
	d := c.cfg.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.cfg.MaxDelay {
			return c.cfg.MaxDelay
		}
	}
	return min(d, c.cfg.MaxDelay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
