package experience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultLoadTimeout bounds the single embed acquisition attempt.
const DefaultLoadTimeout = 8 * time.Second

var (
	// ErrLoadTimeout means the acquisition did not settle in time.
	ErrLoadTimeout = errors.New("experience: embed load timed out")
	// ErrNoCapability means no acquisition function was configured.
	ErrNoCapability = errors.New("experience: embed capability not configured")
)

// Capability is the acquired third-party embed. Mount resolves the player source bound
// to a track identifier; Script is what the page loads to command that player.
type Capability interface {
	Mount(ctx context.Context, trackID string) (string, error)
	Script() string
}

// AcquireFunc performs the one acquisition attempt.
type AcquireFunc func(ctx context.Context) (Capability, error)

// Loader is a lazily initialised shared handle to the embed capability. The first
// Acquire starts exactly one attempt; every caller, concurrent or later, observes its
// outcome.
type Loader struct {
	acquire AcquireFunc
	timeout time.Duration

	once sync.Once
	done chan struct{}
	cap  Capability
	err  error
}

// NewLoader returns an idle loader. Non-positive timeouts use DefaultLoadTimeout.
func NewLoader(acquire AcquireFunc, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Loader{acquire: acquire, timeout: timeout, done: make(chan struct{})}
}

// Acquire returns the capability, starting the attempt if needed and otherwise awaiting
// the pending one. ctx only bounds this caller's wait; the attempt itself runs under the
// loader's own timeout.
func (l *Loader) Acquire(ctx context.Context) (Capability, error) {
	l.once.Do(func() { go l.run() })
	select {
	case <-l.done:
		return l.cap, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether the attempt has finished.
func (l *Loader) Settled() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *Loader) run() {
	defer close(l.done)
	if l.acquire == nil {
		l.err = ErrNoCapability
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	type result struct {
		cap Capability
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.acquire(ctx)
		ch <- result{cap: c, err: err}
	}()

	select {
	case r := <-ch:
		switch {
		case r.err != nil:
			l.err = r.err
		case r.cap == nil:
			l.err = ErrNoCapability
		default:
			l.cap = r.cap
		}
	case <-ctx.Done():
		l.err = ErrLoadTimeout
	}
}
