// Package lock serializes runs on one consolidator account.
// The portal keeps a single server-side session per login, so two runs must never
// drive the same account at once.
package lock

//go:generate mockgen -source=lock.go -destination=mock_lock.go -package=lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/retry"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/timeutil"
)

// ErrHeld is returned when another holder owns the lock.
var ErrHeld = errors.New("lock is held")

// ErrNotOwner is returned when releasing a lock with a stale token.
var ErrNotOwner = errors.New("lock is not owned by this token")

// Locker hands out exclusive, expiring locks.
type Locker interface {
	// Acquire takes the lock for ttl and returns the owner token, or ErrHeld.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Release frees the lock if token still owns it.
	Release(ctx context.Context, key, token string) error
}

// AcquireWait retries Acquire while the lock is held, for at most wait.
// A zero wait makes a single attempt.
func AcquireWait(ctx context.Context, l Locker, key string, ttl, wait time.Duration) (string, error) {
	if wait <= 0 {
		return l.Acquire(ctx, key, ttl)
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	cfg := retry.LockWaitConfig.WithMaxAttempts(1 << 16).WithRetryIf(func(err error) bool {
		return errors.Is(err, ErrHeld)
	})
	token, err := retry.DoWithResult(waitCtx, func() (string, error) {
		return l.Acquire(ctx, key, ttl)
	}, cfg)
	if err != nil && waitCtx.Err() != nil && ctx.Err() == nil {
		return "", ErrHeld
	}
	return token, err
}

type entry struct {
	token   string
	expires time.Time
}

// LocalLocker is an in-process Locker for single-instance deployments.
type LocalLocker struct {
	mu       sync.Mutex
	entries  map[string]entry
	clock    timeutil.Clock
	newToken func() string
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker(clock timeutil.Clock) *LocalLocker {
	if clock == nil {
		clock = timeutil.NewRealClock()
	}
	return &LocalLocker{
		entries:  make(map[string]entry),
		clock:    clock,
		newToken: uuid.NewString,
	}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if e, ok := l.entries[key]; ok && now.Before(e.expires) {
		return "", ErrHeld
	}
	token := l.newToken()
	l.entries[key] = entry{token: token, expires: now.Add(ttl)}
	return token, nil
}

// Release implements Locker.
func (l *LocalLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || e.token != token {
		return ErrNotOwner
	}
	delete(l.entries, key)
	return nil
}

var _ Locker = (*LocalLocker)(nil)
