package loggerbus

import (
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type eventSink struct {
	logger *log.Logger
}

// NewEventSink returns a sink that logs every selection event with the given
// logger, or the standard one if nil.
// Attempts are logged at debug level, successes at info, failures at warn.
func NewEventSink(logger *log.Logger) ports.SelectionEventSink {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &eventSink{logger}
}

func (s *eventSink) PublishSelectionEvent(event domain.SelectionEvent) error {
	entry := s.logger.WithFields(log.Fields{
		"id":            event.ID,
		"strategy":      event.Strategy,
		"coin_control":  event.CoinControl,
		"target_amount": event.TargetAmount,
		"fee_rate":      event.FeeRate.String(),
		"dust_amount":   event.DustAmount,
	})

	switch event.Type {
	case domain.SelectionAttempted:
		entry.Debug("coin selection attempted")
	case domain.SelectionSucceeded:
		entry.WithFields(log.Fields{
			"num_inputs":    event.NumInputs,
			"fee_amount":    event.FeeAmount,
			"change_amount": event.ChangeAmount,
		}).Info("coin selection succeeded")
	case domain.SelectionFailed:
		if event.Required > 0 {
			entry = entry.WithFields(log.Fields{
				"available": event.Available,
				"required":  event.Required,
			})
		}
		entry.WithField("error", event.Error).Warn("coin selection failed")
	}
	return nil
}
