package automation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// maxCalendarPages bounds the "next month" clicks when looking for a day.
const maxCalendarPages = 12

// SearchController fills and submits the portal search form.
type SearchController struct {
	catalog  *portal.Catalog
	timeouts Timeouts
	log      *logger.Logger
}

// NewSearchController creates a SearchController.
func NewSearchController(catalog *portal.Catalog, timeouts Timeouts, log *logger.Logger) *SearchController {
	return &SearchController{catalog: catalog, timeouts: timeouts, log: log}
}

// Search searches the target segment and waits for the results list.
// Round trips also pick the return date; multi-city itineraries search the target
// segment one way.
func (s *SearchController) Search(ctx context.Context, page portal.Page, data *domain.BookingData) error {
	fail := func(err error) error {
		return domain.NewStepError(StepSearch, domain.ErrSearch, err)
	}

	target := data.TargetSegment()
	ret, roundTrip := data.ReturnSegment()

	trip := portal.TripOneWay
	if roundTrip {
		trip = portal.TripRoundTrip
	}
	if err := click(page, s.catalog.Locator(trip)); err != nil {
		return fail(err)
	}

	if err := s.airport(ctx, page, portal.Origin, target.Origin); err != nil {
		return fail(err)
	}
	if err := s.airport(ctx, page, portal.Destination, target.Destination); err != nil {
		return fail(err)
	}

	if err := s.date(ctx, page, portal.DepartureDate, target.DepartureDate); err != nil {
		return fail(err)
	}
	if roundTrip {
		if err := s.date(ctx, page, portal.ReturnDate, ret.DepartureDate); err != nil {
			return fail(err)
		}
	}

	if err := s.passengers(ctx, page, data); err != nil {
		return fail(err)
	}

	if err := click(page, s.catalog.Locator(portal.SearchSubmit)); err != nil {
		return fail(err)
	}
	if err := page.WaitVisible(ctx, s.catalog.Landmark(portal.LandmarkResults), s.timeouts.Results); err != nil {
		return fail(fmt.Errorf("results list: %w", err))
	}

	s.log.Debug().
		Str("origin", target.Origin).
		Str("destination", target.Destination).
		Str("date", target.DepartureDate).
		Bool("round_trip", roundTrip).
		Msg("Search results shown")
	return nil
}

// airport types an IATA code and takes the first suggestion offered.
func (s *SearchController) airport(ctx context.Context, page portal.Page, name, code string) error {
	if code == "" {
		return fmt.Errorf("%s: no airport code", name)
	}
	if err := fill(page, s.catalog.Locator(name), code); err != nil {
		return err
	}
	if err := pause(ctx, s.timeouts.Debounce); err != nil {
		return err
	}
	if err := click(page, s.catalog.Locator(portal.Suggestion)); err != nil {
		return fmt.Errorf("%s %s: %w", name, code, err)
	}
	return nil
}

// date opens the date picker and clicks the day cell keyed by the ISO date,
// paging forward through months until it is rendered.
func (s *SearchController) date(ctx context.Context, page portal.Page, name, isoDate string) error {
	if isoDate == "" {
		return fmt.Errorf("%s: no date", name)
	}
	if err := click(page, s.catalog.Locator(name)); err != nil {
		return err
	}

	day := s.catalog.Locator(portal.CalendarDay).With(map[string]string{"date": isoDate})
	for i := 0; i <= maxCalendarPages; i++ {
		if el, err := day.Resolve(page); err == nil {
			return el.Click()
		}
		if i == maxCalendarPages {
			break
		}
		if err := click(page, s.catalog.Locator(portal.CalendarNext)); err != nil {
			return fmt.Errorf("%s %s: %w", name, isoDate, err)
		}
		if err := pause(ctx, s.timeouts.Debounce); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s %s: day not found within %d months", name, isoDate, maxCalendarPages)
}

// passengers sets the counters so that they add up to the passenger list.
// Without child or infant steppers those passengers are counted as adults.
func (s *SearchController) passengers(ctx context.Context, page portal.Page, data *domain.BookingData) error {
	adults, children, infants := data.PassengerCounts()

	if children > 0 {
		if err := s.increment(ctx, page, portal.ChildIncrement, children); err != nil {
			s.log.Debug().Err(err).Msg("No child stepper, counting children as adults")
			adults += children
		}
	}
	if infants > 0 {
		if err := s.increment(ctx, page, portal.InfantIncrement, infants); err != nil {
			s.log.Debug().Err(err).Msg("No infant stepper, counting infants as adults")
			adults += infants
		}
	}

	current := s.adultCount(page)
	if adults > current {
		if err := s.increment(ctx, page, portal.AdultIncrement, adults-current); err != nil {
			return err
		}
	}
	return nil
}

func (s *SearchController) increment(ctx context.Context, page portal.Page, name string, times int) error {
	loc := s.catalog.Locator(name)
	for i := 0; i < times; i++ {
		if err := click(page, loc); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// adultCount reads the adult counter; portals start at one adult.
func (s *SearchController) adultCount(page portal.Page) int {
	el, err := s.catalog.Locator(portal.AdultCount).Resolve(page)
	if err != nil {
		return 1
	}
	value, _ := el.Attribute("value")
	if value == "" {
		value, _ = el.Text()
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 1
	}
	return n
}
