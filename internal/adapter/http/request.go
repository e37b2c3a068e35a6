// Package http provides the HTTP trigger for the rebooking automation.
// It handles request parsing, validation, and response formatting.
package http

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/flight-search/consolidator-rebooking/internal/adapter/sitebooking"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/timeutil"
)

// RebookRequest is the request body of both rebooking endpoints: the booking record exactly
// as the website stored it after checkout.
type RebookRequest struct {
	sitebooking.Record
}

// Validation regex patterns.
var (
	airportCodePattern  = regexp.MustCompile(`^[A-Z]{3}$`)
	carrierCodePattern  = regexp.MustCompile(`^[A-Z0-9]{2}$`)
	flightNumberPattern = regexp.MustCompile(`^\d{1,4}[A-Z]?$`)
	currencyPattern     = regexp.MustCompile(`^[A-Z]{3}$`)
	datePattern         = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Accepted traveler types.
var validTravelerTypes = map[string]bool{
	"ADULT":         true,
	"CHILD":         true,
	"HELD_INFANT":   true,
	"SEATED_INFANT": true,
	"INFANT":        true,
	"SENIOR":        true,
	"":              true, // Empty defaults to adult
}

// ValidationError represents a field-level validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors holds multiple validation errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	return v.Errors[0].Message
}

// Add adds a validation error.
func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// ToMap converts validation errors to a map for API response.
func (v *ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string, len(v.Errors))
	for _, e := range v.Errors {
		result[e.Field] = e.Message
	}
	return result
}

// Validate checks the parts of the record the automation depends on.
// Fields the converter can default (titles, nationality, fare labels) are not required.
func (r *RebookRequest) Validate() error {
	errs := &ValidationErrors{}

	if strings.TrimSpace(r.ID) == "" {
		errs.Add("id", "id is required")
	}

	r.validateItineraries(errs)
	r.validateTravelers(errs)
	r.validatePayment(errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (r *RebookRequest) validateItineraries(errs *ValidationErrors) {
	itineraries := r.Offer.Itineraries
	if len(itineraries) == 0 {
		errs.Add("flightOffer.itineraries", "at least one itinerary is required")
		return
	}

	for i, it := range itineraries {
		field := fmt.Sprintf("flightOffer.itineraries[%d].segments", i)
		if len(it.Segments) == 0 {
			errs.Add(field, "itinerary has no segments")
			continue
		}
		for j, seg := range it.Segments {
			validateSegment(errs, fmt.Sprintf("%s[%d]", field, j), seg)
		}
	}
}

func validateSegment(errs *ValidationErrors, field string, seg sitebooking.Segment) {
	if !carrierCodePattern.MatchString(strings.ToUpper(seg.CarrierCode)) {
		errs.Add(field+".carrierCode", "carrierCode must be a 2-character IATA airline code")
	}
	if !flightNumberPattern.MatchString(strings.ToUpper(seg.Number)) {
		errs.Add(field+".number", "number must be a flight number of 1-4 digits")
	}
	if !airportCodePattern.MatchString(strings.ToUpper(seg.Departure.IataCode)) {
		errs.Add(field+".departure.iataCode", "iataCode must be a valid 3-letter IATA airport code")
	}
	if !airportCodePattern.MatchString(strings.ToUpper(seg.Arrival.IataCode)) {
		errs.Add(field+".arrival.iataCode", "iataCode must be a valid 3-letter IATA airport code")
	}
	if date, clock := timeutil.SplitDateTime(seg.Departure.At); date == "" || clock == "" {
		errs.Add(field+".departure.at", "departure.at must be a local datetime such as 2025-03-10T07:05:00")
	}
}

func (r *RebookRequest) validateTravelers(errs *ValidationErrors) {
	if len(r.Travelers) == 0 {
		errs.Add("travelers", "at least one traveler is required")
		return
	}

	for i, t := range r.Travelers {
		field := fmt.Sprintf("travelers[%d]", i)
		if strings.TrimSpace(t.Name.FirstName) == "" {
			errs.Add(field+".name.firstName", "firstName is required")
		}
		if strings.TrimSpace(t.Name.LastName) == "" {
			errs.Add(field+".name.lastName", "lastName is required")
		}
		if !isValidDate(t.DateOfBirth) {
			errs.Add(field+".dateOfBirth", "dateOfBirth must be a valid date in YYYY-MM-DD format")
		}
	}

	for i, p := range r.Offer.TravelerPricings {
		if !validTravelerTypes[strings.ToUpper(p.TravelerType)] {
			errs.Add(fmt.Sprintf("flightOffer.travelerPricings[%d].travelerType", i),
				"travelerType must be one of: ADULT, CHILD, HELD_INFANT, SEATED_INFANT")
		}
	}
}

func (r *RebookRequest) validatePayment(errs *ValidationErrors) {
	if !r.Payment.AmountPaid.IsPositive() {
		errs.Add("payment.amountPaid", "amountPaid must be a positive amount")
	}
	if !currencyPattern.MatchString(strings.ToUpper(r.Payment.Currency)) {
		errs.Add("payment.currency", "currency must be a 3-letter ISO 4217 code")
	}
	if r.Payment.ExpectedNetPrice.Valid && r.Payment.ExpectedNetPrice.Decimal.IsNegative() {
		errs.Add("payment.expectedNetPrice", "expectedNetPrice cannot be negative")
	}
}

// isValidDate reports whether value is a real calendar date in YYYY-MM-DD format.
func isValidDate(value string) bool {
	if !datePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse(timeutil.ISODate, value)
	return err == nil
}
