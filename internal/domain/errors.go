package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the automation failure taxonomy.
var (
	// ErrInvalidBooking is returned when BookingData violates its invariants.
	ErrInvalidBooking = errors.New("invalid booking data")

	// ErrSessionStart is returned when the browser session cannot be created.
	ErrSessionStart = errors.New("browser session could not be started")

	// ErrSessionBusy is returned when another run holds the portal account.
	ErrSessionBusy = errors.New("portal session is in use by another run")

	// ErrAuthentication is returned when the portal login cannot be verified.
	ErrAuthentication = errors.New("portal authentication failed")

	// ErrSearch is returned when the search form cannot be completed.
	ErrSearch = errors.New("flight search failed")

	// ErrFlightNotFound is returned when no result satisfies the exact-match policy.
	ErrFlightNotFound = errors.New("exact flight not found in results")

	// ErrFareSelection is returned when no fare control matches the purchased fare.
	ErrFareSelection = errors.New("fare selection failed")

	// ErrPriceValidation is returned when the net price is unreadable or above what the customer paid.
	ErrPriceValidation = errors.New("price validation failed")

	// ErrFieldFill is recorded for a single passenger or contact field that could not be filled.
	ErrFieldFill = errors.New("field fill failed")

	// ErrPayment is returned when the payment method or final submit cannot be actioned.
	ErrPayment = errors.New("payment submission failed")

	// ErrConfirmationParse is recorded when no PNR can be read from the confirmation page.
	ErrConfirmationParse = errors.New("confirmation could not be parsed")

	// ErrTimeout marks a bounded portal wait that expired.
	ErrTimeout = errors.New("portal wait timed out")

	// ErrInvalidTransition is returned when the state machine is driven out of order.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// FailureKind is the machine-readable name of a failure reason.
type FailureKind string

// Failure kinds reported in BookingResult.ErrorKind.
const (
	KindNone              FailureKind = ""
	KindInvalidBooking    FailureKind = "invalid_booking"
	KindSessionStart      FailureKind = "session_start_failure"
	KindSessionBusy       FailureKind = "session_busy"
	KindAuthentication    FailureKind = "authentication_failure"
	KindSearch            FailureKind = "search_failure"
	KindFlightNotFound    FailureKind = "flight_not_found"
	KindFareSelection     FailureKind = "fare_selection_failure"
	KindPriceValidation   FailureKind = "price_validation_failure"
	KindFieldFill         FailureKind = "field_fill_failure"
	KindPayment           FailureKind = "payment_failure"
	KindConfirmationParse FailureKind = "confirmation_parse_failure"
	KindTimeout           FailureKind = "timeout"
	KindInternal          FailureKind = "internal"
)

// kindBySentinel maps sentinel errors to failure kinds, most specific first.
var kindBySentinel = []struct {
	err  error
	kind FailureKind
}{
	{ErrInvalidBooking, KindInvalidBooking},
	{ErrSessionBusy, KindSessionBusy},
	{ErrSessionStart, KindSessionStart},
	{ErrAuthentication, KindAuthentication},
	{ErrSearch, KindSearch},
	{ErrFlightNotFound, KindFlightNotFound},
	{ErrFareSelection, KindFareSelection},
	{ErrPriceValidation, KindPriceValidation},
	{ErrFieldFill, KindFieldFill},
	{ErrPayment, KindPayment},
	{ErrConfirmationParse, KindConfirmationParse},
}

// StepError is a fatal failure raised by one automation step.
// It wraps both the step's sentinel kind and the underlying cause.
type StepError struct {
	// Step is the name of the step that failed (e.g., "login")
	Step string

	// Kind is the sentinel error identifying the failure reason
	Kind error

	// Err is the underlying cause
	Err error
}

// NewStepError creates a StepError.
func NewStepError(step string, kind, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Err: err}
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the failure kind of err.
// Step kinds take precedence over the timeout marker: a timed-out search is a search failure.
func KindOf(err error) FailureKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindBySentinel {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	if IsTimeout(err) {
		return KindTimeout
	}
	return KindInternal
}

// IsTimeout reports whether err was caused by an expired wait.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsPriceValidation reports whether err is a profit-safety rejection.
func IsPriceValidation(err error) bool {
	return errors.Is(err, ErrPriceValidation)
}

// IsSessionBusy reports whether err means another run holds the portal account.
func IsSessionBusy(err error) bool {
	return errors.Is(err, ErrSessionBusy)
}

// FieldFailure records a passenger or contact field that could not be filled.
// Field failures never abort a run.
type FieldFailure struct {
	// Passenger is the zero-based passenger index, or -1 for contact fields
	Passenger int `json:"passenger"`

	// Field is the logical field name (e.g., "middle_name")
	Field string `json:"field"`

	// Required is set when a required field could not be identified at all
	Required bool `json:"required,omitempty"`

	// Reason is the error text
	Reason string `json:"reason"`
}

// Error implements the error interface so a FieldFailure can be logged as one.
func (f FieldFailure) Error() string {
	return fmt.Sprintf("%v: passenger %d field %s: %s", ErrFieldFill, f.Passenger, f.Field, f.Reason)
}

// Unwrap returns ErrFieldFill.
func (f FieldFailure) Unwrap() error {
	return ErrFieldFill
}
