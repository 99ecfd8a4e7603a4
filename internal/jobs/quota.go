package jobs

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrQuotaClosed is returned to waiters when the quota gate shuts down.
var ErrQuotaClosed = errors.New("quota gate closed")

// Quota gates calls toward the AI provider. It wraps a token-bucket limiter
// behind a turnstile so that waiters are admitted one at a time in arrival
// order: a later caller cannot grab a refilled token ahead of one already
// queued.
type Quota struct {
	limiter   *rate.Limiter
	turnstile chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewQuota creates a gate allowing r requests per second with the given
// burst capacity.
func NewQuota(r rate.Limit, burst int) *Quota {
	return &Quota{
		limiter:   rate.NewLimiter(r, burst),
		turnstile: make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
}

// Acquire blocks until a token is available, the context is cancelled, or
// the gate is closed.
func (q *Quota) Acquire(ctx context.Context) error {
	select {
	case <-q.closed:
		return ErrQuotaClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.turnstile <- struct{}{}:
	}
	defer func() { <-q.turnstile }()

	// Re-check: Close may have raced the turnstile.
	select {
	case <-q.closed:
		return ErrQuotaClosed
	default:
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-q.closed:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := q.limiter.Wait(waitCtx); err != nil {
		select {
		case <-q.closed:
			return ErrQuotaClosed
		default:
		}
		return err
	}
	return nil
}

// Close shuts the gate. Every queued waiter unblocks with ErrQuotaClosed;
// closing twice is safe.
func (q *Quota) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
