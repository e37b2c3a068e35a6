package http

import (
	"github.com/flight-search/consolidator-rebooking/internal/domain"
)

// RebookingDTO is the payload of a finished rebooking run.
type RebookingDTO struct {
	BookingID        string `json:"booking_id"`
	BookingReference string `json:"booking_reference,omitempty"`

	// Outcome is confirmed, pnr_unconfirmed or failed
	Outcome string `json:"outcome"`

	// Result is the run's full result, identical to what is published downstream
	Result domain.BookingResult `json:"result"`
}

// PreviewDTO is the payload of a conversion preview.
type PreviewDTO struct {
	// Booking is the exact input the automation would receive
	Booking domain.BookingData `json:"booking"`

	// TargetFlight is the designator the results page will be matched on
	TargetFlight string `json:"target_flight"`

	// ReturnFlight is set for round trips
	ReturnFlight string `json:"return_flight,omitempty"`

	// Warnings lists conversion fallbacks an operator may want to check
	Warnings []string `json:"warnings"`
}
