// Package automation drives one rebooking run through the consolidator portal.
// Every component works on the page owned by a Session and on read-only BookingData;
// the Booker sequences them through the domain state machine.
package automation

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/screenshot"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/timeutil"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// captureTimeout bounds a screenshot taken after the run context has expired.
const captureTimeout = 10 * time.Second

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Session owns the browser of one run and its audit screenshot trail.
// It is used by a single goroutine.
type Session struct {
	driver portal.Driver
	opts   portal.Options
	store  screenshot.Store
	clock  timeutil.Clock
	log    *logger.Logger
	prefix string

	browser portal.Browser
	page    portal.Page
	shots   []string
	seq     int

	closeOnce sync.Once
	closeErr  error
}

// NewSession creates a session whose screenshots are stored under prefix.
func NewSession(driver portal.Driver, opts portal.Options, store screenshot.Store, clock timeutil.Clock, log *logger.Logger, prefix string) *Session {
	prefix = unsafeNameChars.ReplaceAllString(prefix, "_")
	if prefix == "" {
		prefix = "unreferenced"
	}
	return &Session{
		driver: driver,
		opts:   opts,
		store:  store,
		clock:  clock,
		log:    log,
		prefix: prefix,
	}
}

// Init launches the browser. Whatever was started is kept for Close even when Init fails.
func (s *Session) Init(ctx context.Context) error {
	b, err := s.driver.Open(ctx, s.opts)
	s.browser = b
	if err != nil {
		return domain.NewStepError(StepSession, domain.ErrSessionStart, err)
	}
	if b == nil || b.Page() == nil {
		return domain.NewStepError(StepSession, domain.ErrSessionStart, fmt.Errorf("driver returned no page"))
	}
	s.page = b.Page()
	return nil
}

// Page returns the live page. It is nil before a successful Init.
func (s *Session) Page() portal.Page {
	return s.page
}

// Capture takes a full-page screenshot and appends its reference to the trail.
// Failures are logged and never abort the run.
func (s *Session) Capture(ctx context.Context, step string) {
	if s.page == nil {
		s.log.Debug().Str("step", step).Msg("No page to capture")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), captureTimeout)
	defer cancel()

	png, err := s.page.Screenshot(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("step", step).Msg("Screenshot failed")
		return
	}

	s.seq++
	name := fmt.Sprintf("%s/%s_%02d_%s.png", s.prefix, timeutil.ScreenshotStamp(s.clock.Now()), s.seq, unsafeNameChars.ReplaceAllString(step, "_"))
	ref, err := s.store.Save(ctx, name, png)
	if err != nil {
		s.log.Warn().Err(err).Str("step", step).Str("screenshot", name).Msg("Screenshot upload failed")
		return
	}
	s.shots = append(s.shots, ref)
	s.log.Debug().Str("step", step).Str("screenshot", ref).Msg("Screenshot captured")
}

// Screenshots returns a copy of the trail.
func (s *Session) Screenshots() []string {
	out := make([]string, len(s.shots))
	copy(out, s.shots)
	return out
}

// Close releases the browser. Only the first call does anything.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
	})
	return s.closeErr
}
