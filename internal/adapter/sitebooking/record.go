// Package sitebooking reads the booking records the website stores after checkout and
// converts them into the rebooking input.
package sitebooking

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Record is a paid booking as stored by the website.
type Record struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`

	// Offer is the flight offer the customer purchased
	Offer Offer `json:"flightOffer"`

	Travelers []Traveler `json:"travelers"`
	Payment   Payment    `json:"payment"`
	Contact   Contact    `json:"contact"`
}

// Offer is the purchased flight offer.
type Offer struct {
	ID               string            `json:"id"`
	Itineraries      []Itinerary       `json:"itineraries"`
	TravelerPricings []TravelerPricing `json:"travelerPricings"`
}

// Itinerary is one direction of travel.
type Itinerary struct {
	Duration string    `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Segment is one flown leg of an itinerary.
type Segment struct {
	ID          string   `json:"id"`
	CarrierCode string   `json:"carrierCode"`
	Number      string   `json:"number"`
	Departure   Endpoint `json:"departure"`
	Arrival     Endpoint `json:"arrival"`
}

// Endpoint is an airport and local time.
type Endpoint struct {
	IataCode string `json:"iataCode"`
	Terminal string `json:"terminal,omitempty"`
	// At is the local ISO datetime, e.g. "2025-03-10T07:05:00"
	At string `json:"at"`
}

// TravelerPricing links a traveler to the fare of every segment.
type TravelerPricing struct {
	TravelerID string `json:"travelerId"`
	// TravelerType is ADULT, CHILD, HELD_INFANT or SEATED_INFANT
	TravelerType         string       `json:"travelerType"`
	FareDetailsBySegment []FareDetail `json:"fareDetailsBySegment"`
}

// FareDetail is the fare of one segment.
type FareDetail struct {
	SegmentID           string        `json:"segmentId"`
	Cabin               string        `json:"cabin"`
	BrandedFare         string        `json:"brandedFare"`
	Class               string        `json:"class"`
	IncludedCheckedBags *CheckedBags  `json:"includedCheckedBags,omitempty"`
	Amenities           []FareAmenity `json:"amenities,omitempty"`
}

// CheckedBags is the checked baggage allowance.
type CheckedBags struct {
	Quantity   int    `json:"quantity"`
	Weight     int    `json:"weight,omitempty"`
	WeightUnit string `json:"weightUnit,omitempty"`
}

// FareAmenity is a service included with or sold alongside the fare.
type FareAmenity struct {
	Description  string `json:"description"`
	AmenityType  string `json:"amenityType"`
	IsChargeable bool   `json:"isChargeable"`
}

// Traveler is one passenger.
type Traveler struct {
	ID          string           `json:"id"`
	DateOfBirth string           `json:"dateOfBirth"`
	Gender      string           `json:"gender"`
	Name        TravelerName     `json:"name"`
	Documents   []Document       `json:"documents,omitempty"`
	Contact     *TravelerContact `json:"contact,omitempty"`
}

// TravelerName holds the passenger's names as on the travel document.
type TravelerName struct {
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName"`
}

// Document is a travel document.
type Document struct {
	DocumentType    string `json:"documentType"`
	Number          string `json:"number"`
	ExpiryDate      string `json:"expiryDate"`
	IssuanceCountry string `json:"issuanceCountry"`
	Nationality     string `json:"nationality"`
	Holder          bool   `json:"holder"`
}

// TravelerContact is a passenger's own contact details.
type TravelerContact struct {
	EmailAddress string  `json:"emailAddress"`
	Phones       []Phone `json:"phones,omitempty"`
}

// Phone is a phone number split into its calling code and number.
type Phone struct {
	CountryCallingCode string `json:"countryCallingCode"`
	Number             string `json:"number"`
}

// Payment is what the customer was charged.
type Payment struct {
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Currency   string          `json:"currency"`
	// ExpectedNetPrice is the consolidator net quoted at sale time, if it was recorded
	ExpectedNetPrice decimal.NullDecimal `json:"expectedNetPrice"`
}

// Contact is the booking-level contact.
type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ParseRecord decodes a JSON booking record.
func ParseRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decode booking record: %w", err)
	}
	return r, nil
}
