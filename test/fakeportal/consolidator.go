package fakeportal

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// Card is one rendered search result.
type Card struct {
	AirlineName  string
	AirlineCode  string
	FlightNumber string
	Departure    string
	Arrival      string
	Price        string
}

// Scenario describes how the fake consolidator behaves.
type Scenario struct {
	Email    string
	Password string

	// CalendarMonth is the month the date picker opens on, as "2006-01".
	CalendarMonth string
	// NoChildSteppers leaves out the child and infant counters.
	NoChildSteppers bool
	// NoResults keeps the results list from ever rendering.
	NoResults bool
	Cards     []Card

	// Fares are the fare option labels, in display order.
	Fares []string
	// NoContinue advances straight from a fare click to the details screen.
	NoContinue bool
	NetPrice   string

	// PlainPassengerForms renders passenger fields without per-passenger containers.
	PlainPassengerForms bool
	// MissingFields omits these passenger field names from every form.
	MissingFields []string
	NoPayment     bool

	Confirmation string
}

// UA226 returns the reference scenario: UA226 BOS to IAH departing 07:05 among
// look-alike flights, quoting the given net price.
func UA226(netPrice string) Scenario {
	return Scenario{
		Email:         "agent@example.com",
		Password:      "secret",
		CalendarMonth: "2025-03",
		Cards: []Card{
			{AirlineName: "United Airlines", AirlineCode: "UA", FlightNumber: "1410", Departure: "07:05", Arrival: "10:40", Price: "$395"},
			{AirlineName: "Delta Air Lines", AirlineCode: "DL", FlightNumber: "226", Departure: "07:05", Arrival: "10:31", Price: "$402"},
			{AirlineName: "United Airlines", AirlineCode: "UA", FlightNumber: "226", Departure: "07:05", Arrival: "10:24", Price: "$410"},
			{AirlineName: "United Airlines", AirlineCode: "UA", FlightNumber: "226", Departure: "17:05", Arrival: "20:24", Price: "$380"},
		},
		Fares:        []string{"Basic Economy", "Economy", "Economy Refundable", "Business"},
		NetPrice:     netPrice,
		Confirmation: "Booking confirmed. Record Locator: AB12CD. E-ticket 016-2345678901. Booking Reference: CX-99812",
	}
}

// Consolidator is a scripted consolidator portal with its recorded state.
type Consolidator struct {
	scenario Scenario
	page     *Page
	closes   int32
	opens    int32

	// OpenErr makes Open fail after handing out a browser.
	OpenErr error
	// LastOptions is what the last Open was called with.
	LastOptions portal.Options

	LoggedIn        bool
	Trip            string
	Origin          string
	Destination     string
	DepartDate      string
	ReturnDate      string
	Adults          int
	Children        int
	Infants         int
	Searched        bool
	ExpandedCard    int
	BookedCard      int
	Fare            string
	PaymentSelected bool
	Submitted       bool

	calendarFor   string
	calendarMonth time.Time
}

// NewConsolidator builds the fake portal for a scenario.
func NewConsolidator(s Scenario) *Consolidator {
	c := &Consolidator{
		scenario:     s,
		page:         NewPage(),
		Trip:         "round_trip",
		Adults:       1,
		ExpandedCard: -1,
		BookedCard:   -1,
	}
	c.page.OnNavigate = func(p *Page, _ string) { c.showLogin("") }
	c.page.OnFill(c.onFill)

	c.page.On("login", c.login)
	c.page.On("trip-oneway", func(*Page, *goquery.Selection) { c.Trip = "one_way" })
	c.page.On("trip-round", func(*Page, *goquery.Selection) { c.Trip = "round_trip" })
	c.page.On("pick-suggestion", c.pickSuggestion)
	c.page.On("open-calendar", c.openCalendar)
	c.page.On("calendar-next", c.calendarNext)
	c.page.On("pick-date", c.pickDate)
	c.page.On("adult-inc", func(p *Page, _ *goquery.Selection) { c.Adults++; c.setCount("adults-count", c.Adults) })
	c.page.On("child-inc", func(p *Page, _ *goquery.Selection) { c.Children++; c.setCount("children-count", c.Children) })
	c.page.On("infant-inc", func(p *Page, _ *goquery.Selection) { c.Infants++; c.setCount("infants-count", c.Infants) })
	c.page.On("search", c.search)
	c.page.On("expand", c.expand)
	c.page.On("book", c.book)
	c.page.On("fare", c.chooseFare)
	c.page.On("continue", func(*Page, *goquery.Selection) {
		if c.Fare != "" {
			c.showDetails()
		}
	})
	c.page.On("pay-card", func(*Page, *goquery.Selection) { c.PaymentSelected = true })
	c.page.On("submit", c.submit)
	return c
}

// Page returns the fake page.
func (c *Consolidator) Page() *Page { return c.page }

// Open implements portal.Driver.
func (c *Consolidator) Open(ctx context.Context, opts portal.Options) (portal.Browser, error) {
	atomic.AddInt32(&c.opens, 1)
	c.LastOptions = opts
	b := &browser{c: c}
	if c.OpenErr != nil {
		return b, c.OpenErr
	}
	return b, nil
}

// Closes is the number of times a browser was closed.
func (c *Consolidator) Closes() int { return int(atomic.LoadInt32(&c.closes)) }

// Opens is the number of launched browsers.
func (c *Consolidator) Opens() int { return int(atomic.LoadInt32(&c.opens)) }

// PassengerFills returns the fills made on the passenger and contact forms.
func (c *Consolidator) PassengerFills() []Fill {
	var out []Fill
	for _, f := range c.page.Fills() {
		if isPassengerField(f.Field) {
			out = append(out, f)
		}
	}
	return out
}

func isPassengerField(field string) bool {
	for _, name := range []string{"title", "gender", "firstName", "middleName", "lastName", "dateOfBirth", "nationality", "passportNumber", "passportExpiry", "contactEmail", "contactPhone"} {
		if field == name || strings.HasPrefix(field, name+"-") {
			return true
		}
	}
	return false
}

type browser struct {
	c *Consolidator
}

func (b *browser) Page() portal.Page { return b.c.page }

func (b *browser) Close() error {
	atomic.AddInt32(&b.c.closes, 1)
	return nil
}

func (c *Consolidator) showLogin(errMsg string) {
	var b strings.Builder
	b.WriteString(`<html><body><form id="login">`)
	if errMsg != "" {
		fmt.Fprintf(&b, `<div class="error">%s</div>`, html.EscapeString(errMsg))
	}
	b.WriteString(`<label for="email">Email</label><input id="email" type="email" name="email">`)
	b.WriteString(`<label for="password">Password</label><input id="password" type="password" name="password">`)
	b.WriteString(`<button type="submit" data-action="login">Sign in</button>`)
	b.WriteString(`</form></body></html>`)
	c.page.Show("login", b.String())
}

func (c *Consolidator) login(p *Page, _ *goquery.Selection) {
	email, _ := p.Doc().Find("#email").Attr("value")
	password, _ := p.Doc().Find("#password").Attr("value")
	if email != c.scenario.Email || password != c.scenario.Password {
		c.showLogin("Invalid email or password")
		return
	}
	c.LoggedIn = true
	c.showSearch()
}

func (c *Consolidator) showSearch() {
	month, err := time.Parse("2006-01", c.scenario.CalendarMonth)
	if err != nil {
		month = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	c.calendarMonth = month

	var b strings.Builder
	b.WriteString(`<html><body><form id="flight-search" data-testid="search-form">`)
	b.WriteString(`<label><input type="radio" name="trip" value="round" data-action="trip-round" checked> Round trip</label>`)
	b.WriteString(`<label><input type="radio" name="trip" value="oneway" data-action="trip-oneway"> One way</label>`)
	b.WriteString(`<label for="origin">From</label><input id="origin" name="origin" data-testid="origin" data-suggest="origin">`)
	b.WriteString(`<label for="destination">To</label><input id="destination" name="destination" data-testid="destination" data-suggest="destination">`)
	b.WriteString(`<ul id="suggestions"></ul>`)
	b.WriteString(`<label for="departureDate">Depart</label><input id="departureDate" name="departureDate" data-testid="departure-date" data-calendar="depart" data-action="open-calendar" readonly>`)
	b.WriteString(`<label for="returnDate">Return</label><input id="returnDate" name="returnDate" data-testid="return-date" data-calendar="return" data-action="open-calendar" readonly>`)
	b.WriteString(`<div id="calendar"></div>`)
	b.WriteString(`<div class="pax"><span>Adults</span><span data-testid="adults-count">1</span><button type="button" aria-label="Increase adults" data-action="adult-inc">+</button>`)
	if !c.scenario.NoChildSteppers {
		b.WriteString(`<span>Children</span><span data-testid="children-count">0</span><button type="button" aria-label="Increase children" data-action="child-inc">+</button>`)
		b.WriteString(`<span>Infants</span><span data-testid="infants-count">0</span><button type="button" aria-label="Increase infants" data-action="infant-inc">+</button>`)
	}
	b.WriteString(`</div>`)
	b.WriteString(`<button type="submit" data-testid="search-submit" data-action="search">Search</button>`)
	b.WriteString(`</form></body></html>`)
	c.page.Show("search", b.String())
}

func (c *Consolidator) onFill(p *Page, el *goquery.Selection, value string) {
	field, ok := el.Attr("data-suggest")
	if !ok || value == "" {
		return
	}
	code := strings.ToUpper(value)
	var b strings.Builder
	for _, suffix := range []string{"International Airport", "All airports"} {
		fmt.Fprintf(&b, `<li class="autocomplete-suggestion" role="option" data-action="pick-suggestion" data-field="%s" data-code="%s">%s - %s</li>`,
			field, html.EscapeString(code), html.EscapeString(code), suffix)
	}
	p.Doc().Find("#suggestions").SetHtml(b.String())
}

func (c *Consolidator) pickSuggestion(p *Page, target *goquery.Selection) {
	field, _ := target.Attr("data-field")
	code, _ := target.Attr("data-code")
	switch field {
	case "origin":
		c.Origin = code
	case "destination":
		c.Destination = code
	}
	p.Doc().Find("#suggestions").Empty()
}

func (c *Consolidator) openCalendar(p *Page, target *goquery.Selection) {
	c.calendarFor, _ = target.Attr("data-calendar")
	c.renderCalendar()
}

func (c *Consolidator) calendarNext(*Page, *goquery.Selection) {
	c.calendarMonth = c.calendarMonth.AddDate(0, 1, 0)
	c.renderCalendar()
}

func (c *Consolidator) renderCalendar() {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="month">%s</div><table><tr>`, c.calendarMonth.Format("January 2006"))
	for d := c.calendarMonth; d.Month() == c.calendarMonth.Month(); d = d.AddDate(0, 0, 1) {
		fmt.Fprintf(&b, `<td data-date="%s" data-action="pick-date">%d</td>`, d.Format("2006-01-02"), d.Day())
	}
	b.WriteString(`</tr></table><button type="button" aria-label="Next month" data-action="calendar-next">&gt;</button>`)
	c.page.Doc().Find("#calendar").SetHtml(b.String())
}

func (c *Consolidator) pickDate(p *Page, target *goquery.Selection) {
	date, _ := target.Attr("data-date")
	switch c.calendarFor {
	case "depart":
		c.DepartDate = date
		p.Doc().Find("#departureDate").SetAttr("value", date)
	case "return":
		c.ReturnDate = date
		p.Doc().Find("#returnDate").SetAttr("value", date)
	}
	p.Doc().Find("#calendar").Empty()
}

func (c *Consolidator) setCount(testID string, n int) {
	c.page.Doc().Find(fmt.Sprintf(`[data-testid="%s"]`, testID)).SetText(strconv.Itoa(n))
}

func (c *Consolidator) search(*Page, *goquery.Selection) {
	c.Searched = true
	if c.scenario.NoResults {
		c.page.Show("searching", `<html><body><div class="spinner">Searching fares...</div></body></html>`)
		return
	}
	var b strings.Builder
	b.WriteString(`<html><body><div class="results-list" data-testid="results">`)
	for i, card := range c.scenario.Cards {
		fmt.Fprintf(&b, `<div class="flight-card" data-action="expand" data-card="%d">`, i)
		fmt.Fprintf(&b, `<div class="airline">%s</div><div class="flight">%s %s</div>`,
			html.EscapeString(card.AirlineName), card.AirlineCode, card.FlightNumber)
		fmt.Fprintf(&b, `<div class="times">%s %s &rarr; %s %s</div>`, card.Departure, c.Origin, card.Arrival, c.Destination)
		fmt.Fprintf(&b, `<div class="price">%s</div>`, html.EscapeString(card.Price))
		fmt.Fprintf(&b, `<div class="details"><button type="button" class="book" data-action="book" data-card="%d">BOOK</button></div>`, i)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></body></html>`)
	c.page.Show("results", b.String())
}

func (c *Consolidator) expand(_ *Page, target *goquery.Selection) {
	c.ExpandedCard = cardIndex(target)
}

func (c *Consolidator) book(_ *Page, target *goquery.Selection) {
	c.BookedCard = cardIndex(target)

	var b strings.Builder
	b.WriteString(`<html><body><div class="fare-panel">`)
	for i, fare := range c.scenario.Fares {
		fmt.Fprintf(&b, `<button type="button" class="fare-option" data-action="fare" data-fare="%d"><span class="fare-name">%s</span></button>`,
			i, html.EscapeString(fare))
	}
	if !c.scenario.NoContinue {
		b.WriteString(`<button type="button" name="continue" data-action="continue">Continue</button>`)
	}
	b.WriteString(`</div></body></html>`)
	c.page.Show("fares", b.String())
}

func (c *Consolidator) chooseFare(_ *Page, target *goquery.Selection) {
	i, _ := strconv.Atoi(target.AttrOr("data-fare", "-1"))
	if i >= 0 && i < len(c.scenario.Fares) {
		c.Fare = c.scenario.Fares[i]
	}
	if c.scenario.NoContinue {
		c.showDetails()
	}
}

// passengerCount is read back from the search so the details screen renders one form per traveller.
func (c *Consolidator) passengerCount() int {
	n := c.Adults + c.Children + c.Infants
	if n < 1 {
		return 1
	}
	return n
}

func (c *Consolidator) showDetails() {
	missing := make(map[string]bool)
	for _, f := range c.scenario.MissingFields {
		missing[f] = true
	}
	field := func(b *strings.Builder, name, label string, i int) {
		if missing[name] {
			return
		}
		fmt.Fprintf(b, `<label for="%s-%d">%s</label><input id="%s-%d" name="%s">`, name, i, label, name, i, name)
	}

	var b strings.Builder
	b.WriteString(`<html><body><div class="booking-details">`)
	fmt.Fprintf(&b, `<div class="net-price" data-testid="net-price">Agency net price: %s</div>`, html.EscapeString(c.scenario.NetPrice))
	for i := 0; i < c.passengerCount(); i++ {
		if !c.scenario.PlainPassengerForms {
			fmt.Fprintf(&b, `<div class="passenger-form" data-passenger-index="%d">`, i)
		}
		if !missing["title"] {
			fmt.Fprintf(&b, `<label for="title-%d">Title</label><select id="title-%d" name="title"><option value="MR">Mr</option><option value="MRS">Mrs</option><option value="MS">Ms</option><option value="MSTR">Mstr</option><option value="MISS">Miss</option></select>`, i, i)
		}
		if !missing["gender"] {
			fmt.Fprintf(&b, `<label for="gender-%d">Gender</label><select id="gender-%d" name="gender"><option value="M">Male</option><option value="F">Female</option></select>`, i, i)
		}
		field(&b, "firstName", "First name", i)
		field(&b, "middleName", "Middle name", i)
		field(&b, "lastName", "Last name", i)
		field(&b, "dateOfBirth", "Date of birth", i)
		if !missing["nationality"] {
			fmt.Fprintf(&b, `<label for="nationality-%d">Nationality</label><select id="nationality-%d" name="nationality"><option value="US">United States</option><option value="GB">United Kingdom</option><option value="ID">Indonesia</option><option value="CA">Canada</option></select>`, i, i)
		}
		field(&b, "passportNumber", "Passport number", i)
		field(&b, "passportExpiry", "Passport expiry", i)
		if !c.scenario.PlainPassengerForms {
			b.WriteString(`</div>`)
		}
	}
	b.WriteString(`<div class="contact"><label for="contactEmail">Contact email</label><input id="contactEmail" name="contactEmail" type="email">`)
	b.WriteString(`<label for="contactPhone">Phone</label><input id="contactPhone" name="contactPhone"></div>`)
	if !c.scenario.NoPayment {
		b.WriteString(`<div class="payment"><label><input type="radio" name="payment" value="card" data-action="pay-card"> Charge passenger's card</label>`)
		b.WriteString(`<label><input type="radio" name="payment" value="credit"> Agency credit line</label>`)
		b.WriteString(`<button type="button" data-testid="confirm-booking" data-action="submit">Confirm booking</button></div>`)
	}
	b.WriteString(`</div></body></html>`)
	c.page.Show("details", b.String())
}

func (c *Consolidator) submit(*Page, *goquery.Selection) {
	if !c.PaymentSelected {
		return
	}
	c.Submitted = true
	c.page.Show("confirmation", fmt.Sprintf(
		`<html><head><script>var tracking = "ZZZZZZ";</script></head><body><div class="confirmation"><h1>Thank you</h1><p>%s</p></div></body></html>`,
		html.EscapeString(c.scenario.Confirmation)))
}

func cardIndex(s *goquery.Selection) int {
	i, err := strconv.Atoi(s.AttrOr("data-card", "-1"))
	if err != nil {
		return -1
	}
	return i
}

var _ portal.Driver = (*Consolidator)(nil)
