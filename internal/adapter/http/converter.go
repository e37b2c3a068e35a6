package http

import (
	"fmt"

	"github.com/flight-search/consolidator-rebooking/internal/adapter/sitebooking"
	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/metrics"
)

// ToBookingData converts a validated request into the automation input.
func ToBookingData(req *RebookRequest) *domain.BookingData {
	data := sitebooking.Convert(req.Record)
	return &data
}

// ToRebookingDTO converts a run result into its response payload.
func ToRebookingDTO(data *domain.BookingData, result domain.BookingResult) RebookingDTO {
	return RebookingDTO{
		BookingID:        data.BookingID,
		BookingReference: data.BookingReference,
		Outcome:          metrics.Outcome(result),
		Result:           result,
	}
}

// ToPreviewDTO converts the automation input into a preview payload.
func ToPreviewDTO(data *domain.BookingData) PreviewDTO {
	dto := PreviewDTO{
		Booking:      *data,
		TargetFlight: data.TargetSegment().Designator(),
		Warnings:     previewWarnings(data),
	}
	if ret, ok := data.ReturnSegment(); ok {
		dto.ReturnFlight = ret.Designator()
	}
	return dto
}

func previewWarnings(data *domain.BookingData) []string {
	warnings := []string{}

	if !data.Pricing.ExpectedNetPrice.Valid {
		warnings = append(warnings, "expectedNetPrice not recorded; the portal price is only checked against the amount paid")
	}
	if data.ContactEmail == "" {
		warnings = append(warnings, "booking has no contact email; the first passenger's email is used")
	}
	for i, p := range data.Passengers {
		if p.Passport == nil {
			warnings = append(warnings, fmt.Sprintf("passenger %d has no passport; passport fields are left empty", i))
		}
	}
	if data.Fare.FareClass == "" {
		warnings = append(warnings, "fare has no label; the default fare of the cabin is selected")
	}
	return warnings
}
