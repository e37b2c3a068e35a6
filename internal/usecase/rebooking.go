// Package usecase contains the rebooking business flow: one locked, budgeted run of the
// portal automation followed by metrics and result hand-off.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flight-search/consolidator-rebooking/internal/adapter/publisher"
	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/lock"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/metrics"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/timeutil"
)

// Default configuration values.
const (
	DefaultLockTTL        = 10 * time.Minute
	DefaultRunBudget      = 8 * time.Minute
	DefaultReleaseTimeout = 5 * time.Second
	DefaultPublishTimeout = 15 * time.Second
)

// lockStep names the pseudo-step reported when the account lock cannot be taken.
const lockStep = "acquire_session"

// Booker runs one rebooking against the portal.
type Booker interface {
	BookFlight(ctx context.Context, data *domain.BookingData) domain.BookingResult
}

// RebookingUseCase defines the rebooking operation exposed to the HTTP and CLI surfaces.
type RebookingUseCase interface {
	// Rebook runs the automation for data once, under the portal-account lock, and returns
	// its result. It never retries: a failed run is for a human to reconcile.
	Rebook(ctx context.Context, data *domain.BookingData) domain.BookingResult
}

// Config contains configuration options for the use case.
type Config struct {
	// LockKey identifies the portal account; runs with the same key never overlap
	LockKey string

	LockTTL time.Duration

	// LockWait is how long a run waits for a busy account before giving up
	LockWait time.Duration

	// RunBudget bounds the whole browser run
	RunBudget time.Duration

	ReleaseTimeout time.Duration
	PublishTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LockKey:        "default",
		LockTTL:        DefaultLockTTL,
		RunBudget:      DefaultRunBudget,
		ReleaseTimeout: DefaultReleaseTimeout,
		PublishTimeout: DefaultPublishTimeout,
	}
}

// Dependencies are the collaborators of the use case. Only Booker is required.
type Dependencies struct {
	Booker    Booker
	Locker    lock.Locker
	Publisher publisher.ResultPublisher
	Metrics   *metrics.Collectors
	Clock     timeutil.Clock
	Logger    *logger.Logger
}

type rebookingUseCase struct {
	booker    Booker
	locker    lock.Locker
	publisher publisher.ResultPublisher
	metrics   *metrics.Collectors
	clock     timeutil.Clock
	log       *logger.Logger
	cfg       Config
}

// NewRebookingUseCase creates a RebookingUseCase.
// If config is nil, default values are used; zero fields of a given config fall back to
// their defaults as well.
func NewRebookingUseCase(deps Dependencies, config *Config) RebookingUseCase {
	cfg := DefaultConfig()
	if config != nil {
		if config.LockKey != "" {
			cfg.LockKey = config.LockKey
		}
		if config.LockTTL > 0 {
			cfg.LockTTL = config.LockTTL
		}
		if config.LockWait > 0 {
			cfg.LockWait = config.LockWait
		}
		if config.RunBudget > 0 {
			cfg.RunBudget = config.RunBudget
		}
		if config.ReleaseTimeout > 0 {
			cfg.ReleaseTimeout = config.ReleaseTimeout
		}
		if config.PublishTimeout > 0 {
			cfg.PublishTimeout = config.PublishTimeout
		}
	}

	uc := &rebookingUseCase{
		booker:    deps.Booker,
		locker:    deps.Locker,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		log:       deps.Logger,
		cfg:       cfg,
	}
	if uc.locker == nil {
		uc.locker = lock.NewLocalLocker(deps.Clock)
	}
	if uc.publisher == nil {
		uc.publisher = publisher.NopPublisher{}
	}
	if uc.clock == nil {
		uc.clock = timeutil.NewRealClock()
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	return uc
}

// Rebook implements RebookingUseCase.
func (uc *rebookingUseCase) Rebook(ctx context.Context, data *domain.BookingData) domain.BookingResult {
	result := uc.rebook(ctx, data)

	if uc.metrics != nil {
		uc.metrics.Observe(result)
	}
	uc.publish(ctx, data, result)
	return result
}

func (uc *rebookingUseCase) rebook(ctx context.Context, data *domain.BookingData) domain.BookingResult {
	// Invalid input is rejected by the Booker without a browser; no need to hold the account.
	if data == nil || data.Validate() != nil {
		return uc.run(ctx, data)
	}

	log := uc.log.WithBooking(data.BookingID, "")
	started := uc.clock.Now()

	token, err := lock.AcquireWait(ctx, uc.locker, uc.cfg.LockKey, uc.cfg.LockTTL, uc.cfg.LockWait)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			log.Warn().Msg("Portal account busy, run not started")
			return uc.refuse(started, domain.NewStepError(lockStep, domain.ErrSessionBusy, nil))
		}
		log.Error().Err(err).Msg("Failed to acquire portal account lock")
		return uc.refuse(started, domain.NewStepError(lockStep, domain.ErrSessionStart, err))
	}
	defer uc.release(ctx, log, token)

	runCtx, cancel := context.WithTimeout(ctx, uc.cfg.RunBudget)
	defer cancel()
	return uc.run(runCtx, data)
}

// run calls the Booker, turning a panic into a failed result.
func (uc *rebookingUseCase) run(ctx context.Context, data *domain.BookingData) (result domain.BookingResult) {
	started := uc.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			uc.log.Error().Interface("panic", r).Msg("Booker panicked")
			result = uc.refuse(started, fmt.Errorf("booker panic: %v", r))
		}
	}()
	return uc.booker.BookFlight(ctx, data)
}

// refuse builds the result of a run that never reached the portal.
func (uc *rebookingUseCase) refuse(started time.Time, err error) domain.BookingResult {
	run := domain.RunInfo{
		RunID:       uuid.NewString(),
		StartedAt:   started,
		CompletedAt: uc.clock.Now(),
	}
	return domain.NewFailureResult(run, err, domain.StateInit, decimal.NullDecimal{}, nil, nil)
}

func (uc *rebookingUseCase) release(ctx context.Context, log *logger.Logger, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.ReleaseTimeout)
	defer cancel()
	if err := uc.locker.Release(releaseCtx, uc.cfg.LockKey, token); err != nil {
		log.Warn().Err(err).Msg("Failed to release portal account lock")
	}
}

// publish hands the result downstream. Failures are logged; the result stands.
func (uc *rebookingUseCase) publish(ctx context.Context, data *domain.BookingData, result domain.BookingResult) {
	event := publisher.ResultEvent{
		Result:      result,
		PublishedAt: uc.clock.Now(),
	}
	if data != nil {
		event.BookingID = data.BookingID
		event.BookingReference = data.BookingReference
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.PublishTimeout)
	defer cancel()
	if err := uc.publisher.Publish(pubCtx, event); err != nil {
		uc.log.Error().Err(err).
			Str("booking_id", event.BookingID).
			Str("run_id", result.RunID).
			Msg("Failed to publish rebooking result")
	}
}

// Ensure rebookingUseCase implements RebookingUseCase at compile time.
var _ RebookingUseCase = (*rebookingUseCase)(nil)
