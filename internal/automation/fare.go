package automation

import (
	"context"
	"fmt"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// FareSelector picks the fare tier the customer originally bought.
type FareSelector struct {
	catalog  *portal.Catalog
	timeouts Timeouts
	log      *logger.Logger
}

// NewFareSelector creates a FareSelector.
func NewFareSelector(catalog *portal.Catalog, timeouts Timeouts, log *logger.Logger) *FareSelector {
	return &FareSelector{catalog: catalog, timeouts: timeouts, log: log}
}

// FallbackLocator is the cabin/brand rule used when the exact fare label is not shown.
// Portals often list several economy rows; the last one is taken as the standard fare.
func FallbackLocator(fare domain.Fare) portal.ElementLocator {
	switch domain.FareLabel(fare.Cabin, fare.BrandedFare) {
	case domain.FareBasicEconomy:
		return portal.NewLocator("fare.basic", portal.Text(domain.FareBasicEconomy))
	case domain.FareBusiness:
		return portal.NewLocator("fare.business", portal.Text(domain.FareBusiness))
	case domain.FareFirst:
		return portal.NewLocator("fare.first", portal.Text(domain.FareFirst))
	default:
		return portal.NewLocator("fare.economy", portal.Text(domain.FareEconomy).Last())
	}
}

// Select clicks the fare and continues. It returns the label of the locator that was used.
// A missing fare is fatal: any other tier would break the exact match.
func (f *FareSelector) Select(ctx context.Context, page portal.Page, fare domain.Fare) (string, error) {
	fail := func(err error) error {
		return domain.NewStepError(StepFare, domain.ErrFareSelection, err)
	}

	used := ""
	if fare.FareClass != "" {
		exact := portal.NewLocator("fare.exact", portal.ExactText(fare.FareClass))
		if err := click(page, exact); err == nil {
			used = fare.FareClass
		}
	}
	if used == "" {
		fallback := FallbackLocator(fare)
		if err := click(page, fallback); err != nil {
			return "", fail(fmt.Errorf("fare %q (cabin %s): %w", fare.FareClass, fare.Cabin, err))
		}
		used = fallback.Strategies[0].Value
		f.log.Warn().Str("fare_class", fare.FareClass).Str("fallback", used).Msg("Exact fare label not found, used fallback")
	}

	if err := pause(ctx, f.timeouts.Debounce); err != nil {
		return "", fail(err)
	}
	if err := click(page, f.catalog.Locator(portal.FareContinue)); err != nil {
		f.log.Debug().Msg("No continue button after fare selection")
	}
	return used, nil
}
