package prometheusbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

const (
	namespace = "coinselect"

	outcomeSucceeded         = "succeeded"
	outcomeInsufficientFunds = "insufficient_funds"
	outcomeRejected          = "rejected"
)

// EventSink keeps prometheus metrics about coin selections, labeled by
// strategy.
type EventSink struct {
	attempts   *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	feeAmounts *prometheus.HistogramVec
	numInputs  *prometheus.HistogramVec
}

// NewEventSink registers the metrics with the given registerer, or the
// default one if nil.
func NewEventSink(registerer prometheus.Registerer) (*EventSink, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	s := &EventSink{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selection_attempts_total",
				Help:      "Number of coin selection attempts",
			},
			[]string{"strategy"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selection_outcomes_total",
				Help:      "Number of coin selection outcomes",
			},
			[]string{
				"strategy",
				"outcome", // succeeded, insufficient_funds or rejected
			},
		),
		feeAmounts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "selection_fee_amount",
				Help:      "Fee amount of successful coin selections",
				Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
			},
			[]string{"strategy"},
		),
		numInputs: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "selection_inputs",
				Help:      "Number of inputs of successful coin selections",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
			},
			[]string{"strategy"},
		),
	}

	for _, collector := range []prometheus.Collector{
		s.attempts, s.outcomes, s.feeAmounts, s.numInputs,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *EventSink) PublishSelectionEvent(event domain.SelectionEvent) error {
	switch event.Type {
	case domain.SelectionAttempted:
		s.attempts.WithLabelValues(event.Strategy).Inc()
	case domain.SelectionSucceeded:
		s.outcomes.WithLabelValues(event.Strategy, outcomeSucceeded).Inc()
		s.feeAmounts.WithLabelValues(event.Strategy).Observe(float64(event.FeeAmount))
		s.numInputs.WithLabelValues(event.Strategy).Observe(float64(event.NumInputs))
	case domain.SelectionFailed:
		outcome := outcomeRejected
		if event.Required > 0 {
			outcome = outcomeInsufficientFunds
		}
		s.outcomes.WithLabelValues(event.Strategy, outcome).Inc()
	}
	return nil
}
