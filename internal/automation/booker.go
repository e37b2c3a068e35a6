package automation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/screenshot"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/timeutil"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// BookerConfig holds the dependencies of a Booker.
type BookerConfig struct {
	Driver      portal.Driver
	Browser     portal.Options
	Catalog     *portal.Catalog
	Credentials Credentials
	Timeouts    Timeouts
	Store       screenshot.Store
	Clock       timeutil.Clock
	Logger      *logger.Logger
}

// Booker runs the rebooking state machine end to end.
// A Booker can be reused; every BookFlight call gets its own session.
type Booker struct {
	cfg      BookerConfig
	newRunID func() string
}

// NewBooker creates a Booker. Missing optional dependencies get defaults.
func NewBooker(cfg BookerConfig) *Booker {
	if cfg.Catalog == nil {
		cfg.Catalog = portal.DefaultCatalog()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Store == nil {
		cfg.Store = screenshot.NewLocalStore("screenshots")
	}
	if cfg.Timeouts == (Timeouts{}) {
		cfg.Timeouts = DefaultTimeouts()
	}
	return &Booker{
		cfg:      cfg,
		newRunID: func() string { return uuid.NewString() },
	}
}

// runState is what a run accumulates on its way to the result.
type runState struct {
	data     *domain.BookingData
	session  *Session
	price    decimal.NullDecimal
	failures []domain.FieldFailure
	conf     domain.Confirmation
}

type step struct {
	name string
	// kind is the sentinel reported when the step fails without a StepError of its own.
	kind error
	to   domain.State
	run  func(ctx context.Context, rs *runState) error
}

func (b *Booker) steps() []step {
	c := b.cfg
	auth := NewAuthenticator(c.Catalog, c.Credentials, c.Timeouts, c.Logger.WithStep(StepLogin))
	search := NewSearchController(c.Catalog, c.Timeouts, c.Logger.WithStep(StepSearch))
	matcher := NewFlightMatcher(c.Catalog, c.Logger.WithStep(StepMatch))
	fares := NewFareSelector(c.Catalog, c.Timeouts, c.Logger.WithStep(StepFare))
	prices := NewPriceValidator(c.Catalog, c.Logger.WithStep(StepPrice))
	passengers := NewPassengerFiller(c.Catalog, c.Logger.WithStep(StepPassengers))
	payment := NewPaymentSubmitter(c.Catalog, c.Timeouts, c.Logger.WithStep(StepSubmit))
	reader := NewConfirmationReader(c.Logger.WithStep(StepConfirm))

	return []step{
		{StepLogin, domain.ErrAuthentication, domain.StateLoggedIn, func(ctx context.Context, rs *runState) error {
			return auth.Login(ctx, rs.session.Page())
		}},
		{StepSearch, domain.ErrSearch, domain.StateSearched, func(ctx context.Context, rs *runState) error {
			return search.Search(ctx, rs.session.Page(), rs.data)
		}},
		{StepMatch, domain.ErrFlightNotFound, domain.StateFlightSelected, func(ctx context.Context, rs *runState) error {
			return matcher.Select(ctx, rs.session.Page(), rs.data.TargetSegment())
		}},
		{StepFare, domain.ErrFareSelection, domain.StateFareSelected, func(ctx context.Context, rs *runState) error {
			_, err := fares.Select(ctx, rs.session.Page(), rs.data.Fare)
			return err
		}},
		{StepPrice, domain.ErrPriceValidation, domain.StatePriceValidated, func(ctx context.Context, rs *runState) error {
			price, err := prices.Validate(ctx, rs.session.Page(), rs.data.Pricing)
			if err != nil {
				return err
			}
			rs.price = decimal.NewNullDecimal(price)
			return nil
		}},
		{StepPassengers, domain.ErrFieldFill, domain.StatePassengersFilled, func(ctx context.Context, rs *runState) error {
			failures, err := passengers.Fill(ctx, rs.session.Page(), rs.data)
			rs.failures = failures
			return err
		}},
		{StepSubmit, domain.ErrPayment, domain.StateSubmitted, func(ctx context.Context, rs *runState) error {
			return payment.Submit(ctx, rs.session.Page())
		}},
		{StepConfirm, domain.ErrConfirmationParse, domain.StateConfirmed, func(ctx context.Context, rs *runState) error {
			// The booking is submitted: the page is read even when the budget ran out.
			rs.conf = reader.Read(context.WithoutCancel(ctx), rs.session.Page())
			return nil
		}},
	}
}

// BookFlight re-purchases data's itinerary. It never returns an error: every outcome,
// including invalid input, is a BookingResult. The browser is closed on every path.
func (b *Booker) BookFlight(ctx context.Context, data *domain.BookingData) domain.BookingResult {
	run := domain.RunInfo{RunID: b.newRunID(), StartedAt: b.cfg.Clock.Now()}
	if data == nil {
		return b.reject(run, fmt.Errorf("%w: no booking data", domain.ErrInvalidBooking))
	}
	log := b.cfg.Logger.WithBooking(data.BookingID, run.RunID)

	if err := data.Validate(); err != nil {
		log.Error().Err(err).Str("error_kind", string(domain.KindOf(err))).Msg("Booking data rejected")
		return b.reject(run, err)
	}

	prefix := data.BookingReference
	if prefix == "" {
		prefix = data.BookingID
	}
	session := NewSession(b.cfg.Driver, b.cfg.Browser, b.cfg.Store, b.cfg.Clock, log, prefix)
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing browser failed")
		}
	}()

	machine := domain.NewStateMachine()
	rs := &runState{data: data, session: session}

	fail := func(err error) domain.BookingResult {
		failedIn, _ := machine.Fail()
		session.Capture(ctx, "failed_"+failedIn.String())
		run.CompletedAt = b.cfg.Clock.Now()
		result := domain.NewFailureResult(run, err, failedIn, rs.price, rs.failures, session.Screenshots())
		log.Error().
			Err(err).
			Str("state", failedIn.String()).
			Str("error_kind", string(result.ErrorKind)).
			Bool("timeout", result.Timeout).
			Bool("requires_review", result.RequiresReview).
			Msg("Rebooking failed")
		return result
	}

	log.Info().Str("flight", data.TargetSegment().Designator()).Msg("Rebooking started")
	if err := session.Init(ctx); err != nil {
		return fail(err)
	}

	for _, s := range b.steps() {
		// After submission the card may be charged; the run always goes on to read the confirmation.
		if err := ctx.Err(); err != nil && machine.Current() < domain.StateSubmitted {
			return fail(domain.NewStepError(s.name, s.kind, err))
		}
		log.Debug().Str("step", s.name).Str("state", machine.Current().String()).Msg("Step started")
		if err := s.run(ctx, rs); err != nil {
			return fail(asStepError(s, err))
		}
		if err := machine.Advance(s.to); err != nil {
			return fail(err)
		}
		session.Capture(ctx, s.name)
		log.Debug().Str("step", s.name).Str("state", s.to.String()).Msg("Step completed")
	}

	run.CompletedAt = b.cfg.Clock.Now()
	result := domain.NewSuccessResult(run, rs.conf, rs.price.Decimal, rs.failures, session.Screenshots())

	event := log.Info()
	if result.RequiresReview {
		event = log.Warn()
	}
	event.
		Str("pnr", result.PNR).
		Bool("pnr_unconfirmed", result.PNRUnconfirmed).
		Str("consolidator_price", rs.price.Decimal.String()).
		Str("field_failures", describeFailures(rs.failures)).
		Int("screenshots", len(result.Screenshots)).
		Msg("Rebooking confirmed")
	return result
}

func (b *Booker) reject(run domain.RunInfo, err error) domain.BookingResult {
	run.CompletedAt = b.cfg.Clock.Now()
	return domain.NewFailureResult(run, err, domain.StateInit, decimal.NullDecimal{}, nil, nil)
}

// asStepError attributes errors that do not already carry a step to the step that failed.
func asStepError(s step, err error) error {
	var se *domain.StepError
	if errors.As(err, &se) {
		return err
	}
	return domain.NewStepError(s.name, s.kind, err)
}
