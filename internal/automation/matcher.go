package automation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/timeutil"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// FlightMatcher picks the one result card that is exactly the booked flight.
type FlightMatcher struct {
	catalog *portal.Catalog
	log     *logger.Logger
}

// NewFlightMatcher creates a FlightMatcher.
func NewFlightMatcher(catalog *portal.Catalog, log *logger.Logger) *FlightMatcher {
	return &FlightMatcher{catalog: catalog, log: log}
}

// CardPredicate holds the compiled exact-match rules for one segment.
type CardPredicate struct {
	airline    *regexp.Regexp
	numbers    *regexp.Regexp
	departure  *regexp.Regexp
	designator *regexp.Regexp
	number     string
}

// NewCardPredicate compiles the rules for seg.
func NewCardPredicate(seg domain.Segment) CardPredicate {
	code := regexp.QuoteMeta(strings.ToUpper(strings.TrimSpace(seg.AirlineCode)))
	clock := regexp.QuoteMeta(timeutil.NormalizeClock(seg.DepartureTime))
	number := strings.TrimLeft(strings.TrimSpace(seg.FlightNumber), "0")
	return CardPredicate{
		airline:    regexp.MustCompile(`\b` + code + `(?:\b|\s?\d)`),
		numbers:    regexp.MustCompile(`\b` + code + `\s?(\d{1,4})\b`),
		departure:  regexp.MustCompile(`(?:^|[^\d:])` + clock + `(?::\d{2})?\b`),
		designator: regexp.MustCompile(`(?i)\b` + code + `\s?0*` + regexp.QuoteMeta(number) + `\b`),
		number:     number,
	}
}

// Matches requires both the airline (code or designator) and the departure time in the
// card text. A card naming another flight number of the same airline never matches.
func (p CardPredicate) Matches(text string) bool {
	if p.number == "" || !p.airline.MatchString(text) || !p.departure.MatchString(text) {
		return false
	}
	found := p.numbers.FindAllStringSubmatch(text, -1)
	if len(found) == 0 {
		return true
	}
	for _, m := range found {
		if strings.TrimLeft(m[1], "0") == p.number {
			return true
		}
	}
	return false
}

// MatchesDesignator reports whether text names the flight as a whole token, so UA226
// never matches UA2260 or XUA226.
func (p CardPredicate) MatchesDesignator(text string) bool {
	return p.number != "" && p.designator.MatchString(text)
}

// Select clicks the matching card and its BOOK action. When no card qualifies it looks
// for the literal designator anywhere on the page. There is no closest-match fallback.
func (m *FlightMatcher) Select(ctx context.Context, page portal.Page, seg domain.Segment) error {
	fail := func(err error) error {
		return domain.NewStepError(StepMatch, domain.ErrFlightNotFound, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	predicate := NewCardPredicate(seg)
	book := m.catalog.Locator(portal.BookAction)

	cards, _ := m.catalog.Locator(portal.ResultCard).ResolveAll(page)
	for i, card := range cards {
		text, err := card.Text()
		if err != nil || !predicate.Matches(text) {
			continue
		}
		m.log.Debug().Int("card", i).Str("flight", seg.Designator()).Msg("Result card matched")

		if err := card.Click(); err != nil {
			return fail(fmt.Errorf("expand card %d: %w", i, err))
		}
		if err := click(card, book); err == nil {
			return nil
		}
		if err := click(page, book); err != nil {
			return fail(fmt.Errorf("card %d: %w", i, err))
		}
		return nil
	}

	designator := seg.Designator()
	if el := m.designatorElement(page, predicate, designator); el != nil {
		m.log.Warn().Str("flight", designator).Int("cards", len(cards)).Msg("No card matched, using designator text")
		if err := el.Click(); err != nil {
			return fail(fmt.Errorf("click %s: %w", designator, err))
		}
		if err := click(page, book); err != nil {
			return fail(fmt.Errorf("%s: %w", designator, err))
		}
		return nil
	}

	return fail(fmt.Errorf("%s departing %s not among %d results", designator, seg.DepartureTime, len(cards)))
}

// designatorElement returns the first element naming the designator as a whole token.
// Text lookups match substrings, so every candidate is checked again.
func (m *FlightMatcher) designatorElement(page portal.Page, predicate CardPredicate, designator string) portal.Element {
	found, _ := page.ByText(designator, false)
	for _, el := range found {
		text, err := el.Text()
		if err == nil && predicate.MatchesDesignator(text) {
			return el
		}
	}
	return nil
}
