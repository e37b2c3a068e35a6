// Package metrics exposes Prometheus collectors for rebooking runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
)

// Outcomes recorded on runs_total.
const (
	OutcomeConfirmed   = "confirmed"
	OutcomeUnconfirmed = "pnr_unconfirmed"
	OutcomeFailed      = "failed"
)

// Collectors groups the rebooking metrics.
type Collectors struct {
	runs            *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	pnrUnconfirmed  prometheus.Counter
	fieldFailures   *prometheus.CounterVec
	priceRejections prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rebooking_runs_total",
			Help: "Rebooking runs by outcome and failure kind",
		}, []string{"outcome", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rebooking_run_duration_seconds",
			Help:    "Wall-clock duration of rebooking runs",
			Buckets: []float64{5, 15, 30, 60, 90, 120, 180, 300, 480},
		}, []string{"outcome"}),
		pnrUnconfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rebooking_pnr_unconfirmed_total",
			Help: "Submitted bookings whose PNR could not be read",
		}),
		fieldFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rebooking_field_failures_total",
			Help: "Passenger and contact fields that could not be filled",
		}, []string{"field"}),
		priceRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rebooking_price_rejections_total",
			Help: "Runs aborted because the net price exceeded what the customer paid",
		}),
	}
	reg.MustRegister(c.runs, c.duration, c.pnrUnconfirmed, c.fieldFailures, c.priceRejections)
	return c
}

// Observe records one finished run.
func (c *Collectors) Observe(result domain.BookingResult) {
	outcome := Outcome(result)
	c.runs.WithLabelValues(outcome, string(result.ErrorKind)).Inc()

	if !result.StartedAt.IsZero() && !result.CompletedAt.IsZero() {
		c.duration.WithLabelValues(outcome).Observe(result.CompletedAt.Sub(result.StartedAt).Seconds())
	}
	if result.PNRUnconfirmed {
		c.pnrUnconfirmed.Inc()
	}
	if result.ErrorKind == domain.KindPriceValidation {
		c.priceRejections.Inc()
	}
	for _, f := range result.FieldFailures {
		c.fieldFailures.WithLabelValues(f.Field).Inc()
	}
}

// Outcome classifies a result for labelling.
func Outcome(result domain.BookingResult) string {
	switch {
	case !result.Success:
		return OutcomeFailed
	case result.PNRUnconfirmed:
		return OutcomeUnconfirmed
	default:
		return OutcomeConfirmed
	}
}
