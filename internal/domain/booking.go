// Package domain contains the core entities of the consolidator rebooking automation.
// BookingData is the immutable input of one automation run and BookingResult its single
// terminal artifact. Neither type knows anything about browsers or the portal markup.
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TripType describes the shape of the itinerary.
type TripType string

// Supported trip types.
const (
	TripOneWay    TripType = "one_way"
	TripRoundTrip TripType = "round_trip"
	TripMultiCity TripType = "multi_city"
)

// PassengerType is the age category used by fare engines.
type PassengerType string

// Supported passenger types.
const (
	PassengerAdult  PassengerType = "adult"
	PassengerChild  PassengerType = "child"
	PassengerInfant PassengerType = "infant"
)

// BookingData is the canonical input of one rebooking run.
// It is produced once by the converter and treated as read-only afterwards.
type BookingData struct {
	// BookingID is the site's internal booking identifier
	BookingID string `json:"bookingId"`

	// BookingReference is the customer-facing booking reference
	BookingReference string `json:"bookingReference"`

	// Flights contains the trip type and the ordered segments
	Flights FlightPlan `json:"flights"`

	// Passengers is the ordered passenger list
	Passengers []Passenger `json:"passengers"`

	// Fare describes the fare the customer originally purchased
	Fare Fare `json:"fare"`

	// Pricing carries what the customer paid; CustomerPaid is authoritative
	Pricing Pricing `json:"pricing"`

	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
}

// FlightPlan is the itinerary to re-purchase.
type FlightPlan struct {
	TripType TripType  `json:"tripType"`
	Segments []Segment `json:"segments"`
}

// Segment is a single flown leg.
type Segment struct {
	// Leg is the index of the itinerary this segment belongs to (0 = outbound)
	Leg int `json:"leg"`

	// AirlineCode is the IATA marketing carrier code (e.g., "UA")
	AirlineCode string `json:"airlineCode"`

	// FlightNumber is the numeric part of the flight designator (e.g., "226")
	FlightNumber string `json:"flightNumber"`

	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	// DepartureDate is in YYYY-MM-DD format
	DepartureDate string `json:"departureDate"`

	// DepartureTime is in HH:MM format
	DepartureTime string `json:"departureTime"`

	// ArrivalTime is in HH:MM format
	ArrivalTime string `json:"arrivalTime"`

	Cabin string `json:"cabin"`
}

// Designator returns the concatenated airline code and flight number (e.g., "UA226").
func (s Segment) Designator() string {
	return strings.ToUpper(s.AirlineCode) + s.FlightNumber
}

// Passenger is a single traveler.
type Passenger struct {
	Type PassengerType `json:"type"`

	// Title is the salutation the portal expects (Mr, Ms, Mstr, Miss)
	Title string `json:"title"`

	// Gender is MALE or FEMALE
	Gender string `json:"gender"`

	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName"`

	// DateOfBirth is in YYYY-MM-DD format
	DateOfBirth string `json:"dateOfBirth"`

	// Nationality is an ISO 3166-1 alpha-2 code
	Nationality string `json:"nationality"`

	Passport *Passport `json:"passport,omitempty"`

	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Passport holds optional travel document data.
type Passport struct {
	Number         string `json:"number"`
	ExpiryDate     string `json:"expiryDate"`
	IssuingCountry string `json:"issuingCountry,omitempty"`
}

// Fare describes the fare tier to reproduce.
type Fare struct {
	// Cabin is the cabin code (ECONOMY, PREMIUM_ECONOMY, BUSINESS, FIRST)
	Cabin string `json:"cabin"`

	// FareClass is the human-readable fare label (e.g., "Basic Economy")
	FareClass string `json:"fareClass"`

	// BrandedFare is the airline's branded fare code, if any
	BrandedFare string `json:"brandedFare,omitempty"`

	BagsIncluded bool `json:"bagsIncluded"`
	BagCount     int  `json:"bagCount"`
}

// Pricing holds the money side of the original sale.
type Pricing struct {
	// CustomerPaid is the amount already captured from the customer
	CustomerPaid decimal.Decimal `json:"customerPaid"`

	// ExpectedNetPrice is the net price quoted when the booking was sold, if known
	ExpectedNetPrice decimal.NullDecimal `json:"expectedNetPrice"`

	Currency string `json:"currency"`
}

// Validate checks the structural invariants every run relies on.
func (b *BookingData) Validate() error {
	if len(b.Flights.Segments) == 0 {
		return fmt.Errorf("%w: at least one flight segment is required", ErrInvalidBooking)
	}
	if len(b.Passengers) == 0 {
		return fmt.Errorf("%w: at least one passenger is required", ErrInvalidBooking)
	}
	target := b.TargetSegment()
	if target.AirlineCode == "" || target.FlightNumber == "" {
		return fmt.Errorf("%w: target segment has no flight designator", ErrInvalidBooking)
	}
	return nil
}

// TargetSegment returns the segment used for matching: always the first one.
func (b *BookingData) TargetSegment() Segment {
	if len(b.Flights.Segments) == 0 {
		return Segment{}
	}
	return b.Flights.Segments[0]
}

// ReturnSegment returns the first segment of the inbound itinerary of a round trip.
func (b *BookingData) ReturnSegment() (Segment, bool) {
	if b.Flights.TripType != TripRoundTrip {
		return Segment{}, false
	}
	for _, s := range b.Flights.Segments {
		if s.Leg == 1 {
			return s, true
		}
	}
	return Segment{}, false
}

// PassengerCounts returns the number of adults, children and infants.
func (b *BookingData) PassengerCounts() (adults, children, infants int) {
	for _, p := range b.Passengers {
		switch p.Type {
		case PassengerChild:
			children++
		case PassengerInfant:
			infants++
		default:
			adults++
		}
	}
	return adults, children, infants
}

// Contact returns the booking contact, falling back to the first passenger's details.
func (b *BookingData) Contact() (email, phone string) {
	email, phone = b.ContactEmail, b.ContactPhone
	if len(b.Passengers) > 0 {
		if email == "" {
			email = b.Passengers[0].Email
		}
		if phone == "" {
			phone = b.Passengers[0].Phone
		}
	}
	return email, phone
}
