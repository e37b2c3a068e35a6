package portal

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Locator names.
const (
	LoginEmail    = "login.email"
	LoginPassword = "login.password"
	LoginSubmit   = "login.submit"

	TripOneWay      = "search.trip_one_way"
	TripRoundTrip   = "search.trip_round_trip"
	Origin          = "search.origin"
	Destination     = "search.destination"
	Suggestion      = "search.suggestion"
	DepartureDate   = "search.departure_date"
	ReturnDate      = "search.return_date"
	CalendarDay     = "search.calendar_day"
	CalendarNext    = "search.calendar_next"
	AdultCount      = "search.adult_count"
	AdultIncrement  = "search.adult_increment"
	ChildIncrement  = "search.child_increment"
	InfantIncrement = "search.infant_increment"
	SearchSubmit    = "search.submit"

	ResultCard = "results.card"
	BookAction = "results.book"

	FareContinue = "fare.continue"
	NetPrice     = "price.net"

	PassengerContainer = "passenger.container"
	PassengerForm      = "passenger.form"
	PassengerTitle     = "passenger.title"
	PassengerGender    = "passenger.gender"
	FirstName          = "passenger.first_name"
	MiddleName         = "passenger.middle_name"
	LastName           = "passenger.last_name"
	DateOfBirth        = "passenger.date_of_birth"
	Nationality        = "passenger.nationality"
	PassportNumber     = "passenger.passport_number"
	PassportExpiry     = "passenger.passport_expiry"
	ContactEmail       = "contact.email"
	ContactPhone       = "contact.phone"

	PaymentCard   = "payment.card"
	SubmitBooking = "payment.submit"
)

// Landmark names. Landmarks are CSS selector groups the automation waits on.
const (
	LandmarkSearchForm = "search_form"
	LandmarkResults    = "results"
)

// Catalog holds every selector the automation uses.
type Catalog struct {
	locators  map[string]ElementLocator
	landmarks map[string]string
}

// DefaultCatalog returns the built-in selectors.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		locators:  make(map[string]ElementLocator),
		landmarks: make(map[string]string),
	}

	c.add(LoginEmail, CSS(`input[type="email"]`), CSS(`input[name="email"]`), Label("Email"))
	c.add(LoginPassword, CSS(`input[type="password"]`), CSS(`input[name="password"]`), Label("Password"))
	c.add(LoginSubmit, CSS(`button[type="submit"]`), ExactText("Sign in"), ExactText("Log in"))

	c.add(TripOneWay, Label("One way"), Text("One way"))
	c.add(TripRoundTrip, Label("Round trip"), Text("Round trip"))
	c.add(Origin, TestID("origin"), CSS(`input[name="origin"]`), Label("From"), InputScan("origin"))
	c.add(Destination, TestID("destination"), CSS(`input[name="destination"]`), Label("To"), InputScan("destination"))
	c.add(Suggestion, CSS(".autocomplete-suggestion"), CSS(`[role="option"]`))
	c.add(DepartureDate, TestID("departure-date"), CSS(`input[name="departureDate"]`), Label("Depart"), InputScan("departure"))
	c.add(ReturnDate, TestID("return-date"), CSS(`input[name="returnDate"]`), Label("Return"), InputScan("return"))
	c.add(CalendarDay, CSS(`[data-date="{date}"]`))
	c.add(CalendarNext, CSS(`button[aria-label="Next month"]`), CSS(".calendar-next"))
	c.add(AdultCount, TestID("adults-count"), CSS(`input[name="adults"]`))
	c.add(AdultIncrement, CSS(`button[aria-label="Increase adults"]`), TestID("adults-increment"))
	c.add(ChildIncrement, CSS(`button[aria-label="Increase children"]`), TestID("children-increment"))
	c.add(InfantIncrement, CSS(`button[aria-label="Increase infants"]`), TestID("infants-increment"))
	c.add(SearchSubmit, TestID("search-submit"), ExactText("Search"), Text("Search flights"))

	c.add(ResultCard, CSS(".flight-card"), TestID("flight-result"), CSS(".result-item"))
	c.add(BookAction, ExactText("BOOK"), ExactText("Book"), CSS("button.book"))

	c.add(FareContinue, ExactText("Continue"), CSS(`button[name="continue"]`))
	c.add(NetPrice, TestID("net-price"), CSS(".net-price"), Text("Net price"))

	c.add(PassengerContainer, CSS(`[data-passenger-index="{index}"]`))
	c.add(PassengerForm, CSS(".passenger-form"), CSS("fieldset.passenger"))
	c.add(PassengerTitle, CSS(`select[name="title"]`), Label("Title"), InputScan("title"))
	c.add(PassengerGender, CSS(`select[name="gender"]`), Label("Gender"), InputScan("gender"))
	c.add(FirstName, CSS(`input[name="firstName"]`), Label("First name"), InputScan("first name"))
	c.add(MiddleName, CSS(`input[name="middleName"]`), Label("Middle name"), InputScan("middle name"))
	c.add(LastName, CSS(`input[name="lastName"]`), Label("Last name"), InputScan("last name"))
	c.add(DateOfBirth, CSS(`input[name="dateOfBirth"]`), Label("Date of birth"), InputScan("birth"))
	c.add(Nationality, CSS(`select[name="nationality"]`), Label("Nationality"), InputScan("nationality"))
	c.add(PassportNumber, CSS(`input[name="passportNumber"]`), Label("Passport number"), InputScan("passport number"))
	c.add(PassportExpiry, CSS(`input[name="passportExpiry"]`), Label("Passport expiry"), InputScan("expiry"))
	c.add(ContactEmail, CSS(`input[name="contactEmail"]`), Label("Contact email"), InputScan("email"))
	c.add(ContactPhone, CSS(`input[name="contactPhone"]`), Label("Phone"), InputScan("phone"))

	c.add(PaymentCard, CSS(`input[value="card"]`), Label("Charge passenger's card"), Text("Charge passenger's card"))
	c.add(SubmitBooking, TestID("confirm-booking"), ExactText("Confirm booking"), Text("Complete booking"))

	c.landmarks[LandmarkSearchForm] = `form#flight-search, [data-testid="search-form"]`
	c.landmarks[LandmarkResults] = `.results-list, [data-testid="results"]`

	return c
}

func (c *Catalog) add(name string, strategies ...LocatorStrategy) {
	c.locators[name] = NewLocator(name, strategies...)
}

// Locator returns the named locator. An unknown name yields a locator that never matches.
func (c *Catalog) Locator(name string) ElementLocator {
	l, ok := c.locators[name]
	if !ok {
		return ElementLocator{Name: name}
	}
	out := ElementLocator{Name: l.Name, Strategies: make([]LocatorStrategy, len(l.Strategies))}
	copy(out.Strategies, l.Strategies)
	return out
}

// Landmark returns the named selector group, or "" when unknown.
func (c *Catalog) Landmark(name string) string {
	return c.landmarks[name]
}

// Names lists the locator names in order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.locators))
	for name := range c.locators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// catalogFile is the YAML layout of a locator override file.
type catalogFile struct {
	Locators  map[string][]LocatorStrategy `yaml:"locators"`
	Landmarks map[string]string            `yaml:"landmarks"`
}

// LoadCatalog returns the defaults overridden by the YAML file at path.
// An empty path returns the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locator file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog applies YAML overrides on top of the defaults.
// A named locator is replaced as a whole.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse locator file: %w", err)
	}

	c := DefaultCatalog()
	for name, strategies := range file.Locators {
		if _, ok := c.locators[name]; !ok {
			return nil, fmt.Errorf("unknown locator %q", name)
		}
		if len(strategies) == 0 {
			return nil, fmt.Errorf("locator %q: at least one strategy is required", name)
		}
		for i, s := range strategies {
			if !s.Kind.Valid() {
				return nil, fmt.Errorf("locator %q strategy %d: unknown kind %q", name, i, s.Kind)
			}
			if s.Value == "" {
				return nil, fmt.Errorf("locator %q strategy %d: value is required", name, i)
			}
			if s.Pick != "" && s.Pick != PickFirst && s.Pick != PickLast {
				return nil, fmt.Errorf("locator %q strategy %d: unknown pick %q", name, i, s.Pick)
			}
		}
		c.add(name, strategies...)
	}
	for name, selector := range file.Landmarks {
		if _, ok := c.landmarks[name]; !ok {
			return nil, fmt.Errorf("unknown landmark %q", name)
		}
		if selector == "" {
			return nil, fmt.Errorf("landmark %q: selector is required", name)
		}
		c.landmarks[name] = selector
	}
	return c, nil
}
