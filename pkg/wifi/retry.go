package wifi

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Retry timing defaults.
const (
	// DefaultRetryDelay is the base delay between join attempts.
	DefaultRetryDelay = 2 * time.Second

	// DefaultMaxDelay caps the delay between join attempts.
	DefaultMaxDelay = 60 * time.Second

	// DefaultJitter is the maximum random fraction added to a delay,
	// spreading rejoin storms after an access point reboot.
	DefaultJitter = 0.25
)

// RetryConfig is the complete retry policy of a RetryDriver: how many
// times to re-attempt, and how the delay between attempts grows.
type RetryConfig struct {
	// MaxRetries is how many times Connect re-attempts after the
	// first failure. Zero means a single attempt.
	MaxRetries int

	// RetryDelay is the delay before the first retry. Zero selects
	// DefaultRetryDelay.
	RetryDelay time.Duration

	// ExponentialBackoff doubles the delay per retry, capped at
	// MaxDelay.
	ExponentialBackoff bool

	// MaxDelay caps the grown delay. Zero selects DefaultMaxDelay.
	MaxDelay time.Duration

	// Jitter is the maximum random fraction added to each delay.
	// Zero selects DefaultJitter; negative disables jitter.
	Jitter float64
}

// normalized fills unset fields with the defaults.
func (c RetryConfig) normalized() RetryConfig {
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Jitter == 0 {
		c.Jitter = DefaultJitter
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	return c
}

// delay returns the pause before retry attempt n (the first retry is
// 1). With exponential backoff the base doubles per retry up to
// MaxDelay; jitter is drawn from rng when one is given.
func (c RetryConfig) delay(attempt int, rng *rand.Rand) time.Duration {
	d := c.RetryDelay
	if c.ExponentialBackoff {
		for i := 1; i < attempt && d < c.MaxDelay; i++ {
			d *= 2
		}
		if d > c.MaxDelay {
			d = c.MaxDelay
		}
	}
	if c.Jitter > 0 && rng != nil {
		d += time.Duration(float64(d) * c.Jitter * rng.Float64())
	}
	return d
}

// RetryDriver wraps a Driver with a retry policy. The provisioning
// core hands it a single Connect call; attempts and delays live
// entirely here, never in the orchestrator.
type RetryDriver struct {
	inner Driver
	cfg   RetryConfig

	mu  sync.Mutex
	rng *rand.Rand

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryDriver wraps a driver with a retry policy.
func NewRetryDriver(inner Driver, cfg RetryConfig) *RetryDriver {
	return &RetryDriver{
		inner: inner,
		cfg:   cfg.normalized(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: sleepCtx,
	}
}

// Connect attempts to join the network, retrying per the policy. The
// ctx bound applies across all attempts.
func (d *RetryDriver) Connect(ctx context.Context, ssid, password string) error {
	var lastErr error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := d.sleep(ctx, d.nextDelay(attempt)); err != nil {
				return fmt.Errorf("%w: %v", ErrConnectFailed, err)
			}
		}

		if err := d.inner.Connect(ctx, ssid, password); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrConnectFailed, d.cfg.MaxRetries+1, lastErr)
}

// nextDelay draws the jittered delay for a retry attempt.
func (d *RetryDriver) nextDelay(attempt int) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.delay(attempt, d.rng)
}

// Disconnect drops the association.
func (d *RetryDriver) Disconnect() error { return d.inner.Disconnect() }

// IsConnected reports association state.
func (d *RetryDriver) IsConnected() bool { return d.inner.IsConnected() }

// OnConnected registers the link-up sink on the wrapped driver.
func (d *RetryDriver) OnConnected(fn ConnectedFunc) { d.inner.OnConnected(fn) }

// OnDisconnected registers the link-down sink on the wrapped driver.
func (d *RetryDriver) OnDisconnected(fn DisconnectedFunc) { d.inner.OnDisconnected(fn) }

// Compile-time interface satisfaction check.
var _ Driver = (*RetryDriver)(nil)

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
