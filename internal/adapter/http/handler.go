package http

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/flight-search/consolidator-rebooking/internal/adapter/http/middleware"
	"github.com/flight-search/consolidator-rebooking/internal/adapter/http/response"
	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/usecase"
)

// RebookingHandler handles HTTP requests for the rebooking endpoints.
type RebookingHandler struct {
	useCase usecase.RebookingUseCase
	log     *logger.Logger
}

// NewRebookingHandler creates a new RebookingHandler with the given use case.
func NewRebookingHandler(uc usecase.RebookingUseCase, log *logger.Logger) *RebookingHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RebookingHandler{
		useCase: uc,
		log:     log,
	}
}

// Rebook handles POST /api/v1/rebookings.
//
// The request blocks until the run ends. A run that reached the portal always answers
// 200 with its result, failed or not; only a refused run maps to an error status.
func (h *RebookingHandler) Rebook(c echo.Context) error {
	data, err := h.bind(c)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	log := middleware.Logger(c, h.log)
	log.Info().
		Str("booking_id", data.BookingID).
		Str("flight", data.TargetSegment().Designator()).
		Msg("Rebooking requested")

	// A purchase in flight must not be abandoned because the caller hung up.
	ctx := context.WithoutCancel(c.Request().Context())
	result := h.useCase.Rebook(ctx, data)

	switch result.ErrorKind {
	case domain.KindSessionBusy:
		return response.SessionBusy(c, result.RunID)
	case domain.KindInvalidBooking:
		return response.ValidationErrorWithMessage(c, result.Error)
	}

	log.Info().
		Str("booking_id", data.BookingID).
		Str("run_id", result.RunID).
		Bool("success", result.Success).
		Str("pnr", result.PNR).
		Bool("requires_review", result.RequiresReview).
		Msg("Rebooking finished")

	return response.OK(c, ToRebookingDTO(data, result))
}

// Preview handles POST /api/v1/rebookings/preview.
// It returns what Rebook would hand to the automation, without opening a browser.
func (h *RebookingHandler) Preview(c echo.Context) error {
	data, err := h.bind(c)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	return response.OK(c, ToPreviewDTO(data))
}

// Health handles GET /health.
func (h *RebookingHandler) Health(c echo.Context) error {
	return response.Health(c)
}

// bind parses, validates and converts the request body. When it returns a nil booking
// the error response has already been written.
func (h *RebookingHandler) bind(c echo.Context) (*domain.BookingData, error) {
	var req RebookRequest

	if err := c.Bind(&req); err != nil {
		return nil, response.InvalidRequestBody(c)
	}

	if err := req.Validate(); err != nil {
		return nil, h.handleValidationError(c, err)
	}

	data := ToBookingData(&req)
	if err := data.Validate(); err != nil {
		return nil, response.ValidationErrorWithMessage(c, err.Error())
	}
	return data, nil
}

// handleValidationError handles validation errors and returns a 400 response.
func (h *RebookingHandler) handleValidationError(c echo.Context, err error) error {
	var validationErrs *ValidationErrors
	if errors.As(err, &validationErrs) {
		return response.ValidationError(c, validationErrs.ToMap())
	}

	// Fallback for non-structured validation errors
	return response.ValidationErrorWithMessage(c, err.Error())
}
