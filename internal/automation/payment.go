package automation

import (
	"context"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// PaymentSubmitter charges the passenger's card and submits the booking.
type PaymentSubmitter struct {
	catalog  *portal.Catalog
	timeouts Timeouts
	log      *logger.Logger
}

// NewPaymentSubmitter creates a PaymentSubmitter.
func NewPaymentSubmitter(catalog *portal.Catalog, timeouts Timeouts, log *logger.Logger) *PaymentSubmitter {
	return &PaymentSubmitter{catalog: catalog, timeouts: timeouts, log: log}
}

// Submit selects the card payment method and clicks the final booking action.
// Once the submit click went through the booking may be charged, so a slow page
// afterwards is only logged.
func (p *PaymentSubmitter) Submit(ctx context.Context, page portal.Page) error {
	fail := func(err error) error {
		return domain.NewStepError(StepSubmit, domain.ErrPayment, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if err := click(page, p.catalog.Locator(portal.PaymentCard)); err != nil {
		return fail(err)
	}
	if err := pause(ctx, p.timeouts.Debounce); err != nil {
		return fail(err)
	}
	if err := click(page, p.catalog.Locator(portal.SubmitBooking)); err != nil {
		return fail(err)
	}

	if err := page.WaitIdle(ctx, p.timeouts.NetworkIdle); err != nil {
		p.log.Warn().Err(err).Msg("Network did not settle after submit")
	}
	p.log.Info().Msg("Booking submitted")
	return nil
}
