package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingResult is the verdict of one rebooking run.
// It is built exactly once, by NewSuccessResult or NewFailureResult, at the end of a run.
type BookingResult struct {
	// Success is true when the booking was submitted and the run reached StateConfirmed
	Success bool `json:"success"`

	// PNR is the airline booking locator read from the confirmation page
	PNR string `json:"pnr,omitempty"`

	// PNRUnconfirmed is set when the booking was submitted but no PNR could be read
	PNRUnconfirmed bool `json:"pnrUnconfirmed,omitempty"`

	ETicketNumbers        []string `json:"eticketNumbers,omitempty"`
	ConsolidatorReference string   `json:"consolidatorReference,omitempty"`

	// ConsolidatorPrice is the validated net price; only set once price validation passed
	ConsolidatorPrice decimal.NullDecimal `json:"consolidatorPrice"`

	// Error is the human-readable failure message
	Error string `json:"error,omitempty"`

	// ErrorKind is the machine-readable failure reason
	ErrorKind FailureKind `json:"errorKind,omitempty"`

	// Timeout is set when the failure was caused by an expired portal wait
	Timeout bool `json:"timeout,omitempty"`

	// FinalState is the terminal state: StateConfirmed or StateFailed
	FinalState State `json:"finalState"`

	// LastState is the last state reached before the run ended
	LastState State `json:"lastState"`

	// FieldFailures lists passenger/contact fields that could not be filled
	FieldFailures []FieldFailure `json:"fieldFailures,omitempty"`

	// RequiresReview is set when a human must reconcile the booking from the screenshots
	RequiresReview bool `json:"requiresReview"`

	// Screenshots is the ordered audit trail
	Screenshots []string `json:"screenshots"`

	RunID       string    `json:"runId"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// Confirmation is what could be read from the portal's confirmation page.
type Confirmation struct {
	PNR                   string
	ETicketNumbers        []string
	ConsolidatorReference string
}

// RunInfo identifies a run and its timing.
type RunInfo struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewSuccessResult builds the result of a run that reached StateConfirmed.
func NewSuccessResult(run RunInfo, conf Confirmation, price decimal.Decimal, fields []FieldFailure, screenshots []string) BookingResult {
	unconfirmed := conf.PNR == ""
	return BookingResult{
		Success:               true,
		PNR:                   conf.PNR,
		PNRUnconfirmed:        unconfirmed,
		ETicketNumbers:        cloneStrings(conf.ETicketNumbers),
		ConsolidatorReference: conf.ConsolidatorReference,
		ConsolidatorPrice:     decimal.NewNullDecimal(price),
		FinalState:            StateConfirmed,
		LastState:             StateConfirmed,
		FieldFailures:         cloneFields(fields),
		RequiresReview:        unconfirmed || hasRequired(fields),
		Screenshots:           cloneStrings(screenshots),
		RunID:                 run.RunID,
		StartedAt:             run.StartedAt,
		CompletedAt:           run.CompletedAt,
	}
}

// NewFailureResult builds the result of a run that ended in StateFailed.
// failedIn is the state the run was in when err occurred.
func NewFailureResult(run RunInfo, err error, failedIn State, price decimal.NullDecimal, fields []FieldFailure, screenshots []string) BookingResult {
	msg := "unknown failure"
	if err != nil {
		msg = err.Error()
	}
	return BookingResult{
		Success:           false,
		Error:             msg,
		ErrorKind:         KindOf(err),
		Timeout:           IsTimeout(err),
		ConsolidatorPrice: price,
		FinalState:        StateFailed,
		LastState:         failedIn,
		FieldFailures:     cloneFields(fields),
		// Anything past submission may already have been charged.
		RequiresReview: failedIn >= StatePassengersFilled,
		Screenshots:    cloneStrings(screenshots),
		RunID:          run.RunID,
		StartedAt:      run.StartedAt,
		CompletedAt:    run.CompletedAt,
	}
}

func hasRequired(fields []FieldFailure) bool {
	for _, f := range fields {
		if f.Required {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneFields(in []FieldFailure) []FieldFailure {
	if len(in) == 0 {
		return nil
	}
	out := make([]FieldFailure, len(in))
	copy(out, in)
	return out
}
