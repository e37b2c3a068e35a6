// Package mock provides test doubles for the rebooking service.
// These mocks are designed for integration testing where we need
// configurable behavior (delays, scripted results, call tracking).
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
)

// Booker is a configurable stand-in for the automation Booker.
// It records how many runs overlap so tests can check the account lock.
type Booker struct {
	result domain.BookingResult
	delay  time.Duration
	panics any

	mu        sync.Mutex
	callCount int
	received  []*domain.BookingData

	running    atomic.Int32
	maxRunning atomic.Int32
}

// NewBooker creates a Booker returning a confirmed result with PNR "AB12CD".
func NewBooker() *Booker {
	return &Booker{result: ConfirmedResult("AB12CD")}
}

// WithResult configures the result returned by every run.
func (b *Booker) WithResult(r domain.BookingResult) *Booker {
	b.result = r
	return b
}

// WithDelay makes every run take d, or until ctx is done.
func (b *Booker) WithDelay(d time.Duration) *Booker {
	b.delay = d
	return b
}

// WithPanic makes every run panic with v.
func (b *Booker) WithPanic(v any) *Booker {
	b.panics = v
	return b
}

// BookFlight returns the configured result. A run cut short by ctx ends as a timeout
// failure in the login step.
func (b *Booker) BookFlight(ctx context.Context, data *domain.BookingData) domain.BookingResult {
	b.mu.Lock()
	b.callCount++
	b.received = append(b.received, data)
	b.mu.Unlock()

	n := b.running.Add(1)
	defer b.running.Add(-1)
	for {
		peak := b.maxRunning.Load()
		if n <= peak || b.maxRunning.CompareAndSwap(peak, n) {
			break
		}
	}

	if b.panics != nil {
		panic(b.panics)
	}

	if b.delay > 0 {
		select {
		case <-ctx.Done():
			err := domain.NewStepError("login", domain.ErrAuthentication, ctx.Err())
			return domain.NewFailureResult(domain.RunInfo{RunID: "mock-run"}, err, domain.StateInit, decimal.NullDecimal{}, nil, nil)
		case <-time.After(b.delay):
		}
	}
	return b.result
}

// CallCount returns the number of runs started.
func (b *Booker) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callCount
}

// Received returns the booking data of every run in call order.
func (b *Booker) Received() []*domain.BookingData {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*domain.BookingData(nil), b.received...)
}

// MaxConcurrent returns the highest number of runs that were in flight at once.
func (b *Booker) MaxConcurrent() int {
	return int(b.maxRunning.Load())
}

// ConfirmedResult returns a successful result carrying pnr.
func ConfirmedResult(pnr string) domain.BookingResult {
	run := domain.RunInfo{
		RunID:       "mock-run",
		StartedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2025, 3, 1, 9, 3, 0, 0, time.UTC),
	}
	conf := domain.Confirmation{PNR: pnr, ETicketNumbers: []string{"0162345678901"}, ConsolidatorReference: "CX-99812"}
	return domain.NewSuccessResult(run, conf, decimal.RequireFromString("410"), nil, []string{"mock://01_logged_in.png"})
}

// PriceRejectedResult returns the failure of a run stopped by the price guard.
func PriceRejectedResult() domain.BookingResult {
	err := domain.NewStepError("validate_price", domain.ErrPriceValidation, nil)
	return domain.NewFailureResult(domain.RunInfo{RunID: "mock-run"}, err, domain.StateFareSelected, decimal.NullDecimal{}, nil, nil)
}
