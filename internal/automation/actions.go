package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// Step names used in errors, logs and screenshot names.
const (
	StepSession    = "session"
	StepLogin      = "login"
	StepSearch     = "search"
	StepMatch      = "select_flight"
	StepFare       = "select_fare"
	StepPrice      = "validate_price"
	StepPassengers = "fill_passengers"
	StepSubmit     = "submit"
	StepConfirm    = "confirm"
)

// Timeouts bounds the portal waits.
type Timeouts struct {
	Action      time.Duration
	Login       time.Duration
	Results     time.Duration
	NetworkIdle time.Duration
	Debounce    time.Duration
	Navigation  time.Duration
}

// DefaultTimeouts mirrors the configuration defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Action:      10 * time.Second,
		Login:       30 * time.Second,
		Results:     60 * time.Second,
		NetworkIdle: 30 * time.Second,
		Debounce:    500 * time.Millisecond,
		Navigation:  30 * time.Second,
	}
}

func fill(scope portal.Scope, loc portal.ElementLocator, value string) error {
	el, err := loc.Resolve(scope)
	if err != nil {
		return err
	}
	if err := el.Fill(value); err != nil {
		return fmt.Errorf("%s: fill: %w", loc.Name, err)
	}
	return nil
}

func click(scope portal.Scope, loc portal.ElementLocator) error {
	el, err := loc.Resolve(scope)
	if err != nil {
		return err
	}
	if err := el.Click(); err != nil {
		return fmt.Errorf("%s: click: %w", loc.Name, err)
	}
	return nil
}

// pause waits out a UI debounce.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
