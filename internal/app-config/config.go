package appconfig

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/coinselect/internal/config"
	"github.com/vulpemventures/coinselect/internal/core/application"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
	coinselector "github.com/vulpemventures/coinselect/internal/infrastructure/coin-selector"
	feeestimator "github.com/vulpemventures/coinselect/internal/infrastructure/fee-estimator"
	fanoutbus "github.com/vulpemventures/coinselect/internal/infrastructure/message-bus/fanout"
	loggerbus "github.com/vulpemventures/coinselect/internal/infrastructure/message-bus/logger"
	prometheusbus "github.com/vulpemventures/coinselect/internal/infrastructure/message-bus/prometheus"
	watermillbus "github.com/vulpemventures/coinselect/internal/infrastructure/message-bus/watermill"
	dbbadger "github.com/vulpemventures/coinselect/internal/infrastructure/storage/db/badger"
	"github.com/vulpemventures/coinselect/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/vulpemventures/coinselect/internal/infrastructure/storage/db/postgres"
)

// AppConfig is the struct holding all configuration options for the utxo
// manager and the services it depends on.
// This data structure acts also as a factory of the mentioned application
// services and the portable services used by them.
// Public config args:
//   - RepoManagerType - (required) One of the supported repository manager types.
//   - RepoManagerConfig - (optional) Custom config args for the repository manager based on its type.
//   - FeeEstimatorType - (required) One of the supported fee estimator types.
//   - FixedTxVSize - (optional) The tx size used by the fixed fee estimator.
//   - DefaultStrategy - (optional) The strategy used when none is requested.
//   - DefaultFeeRate - (optional) The fee rate used when none is requested.
//   - DustAmount - (required) The threshold below which change is absorbed into the fee.
//   - PrivacyPolicy - (optional) The policy of the maximize-privacy strategy.
//   - SpendUnconfirmedChange - (optional) Whether strategies can select unconfirmed change.
//   - MaxConsolidationFeeRate - (optional) The max fee rate at which the consolidate strategy adds extra inputs.
//   - MaxConsolidationInputs - (optional) The max number of inputs selected by the consolidate strategy.
//   - EventSinkTypes - (optional) The list of sinks notified about selections.
//   - WatermillTopic - (optional) The topic of the watermill sink.
//   - MetricsRegisterer - (optional) The registerer of the prometheus sink metrics.
type AppConfig struct {
	RepoManagerType   string
	RepoManagerConfig interface{}

	FeeEstimatorType        string
	FixedTxVSize            uint64
	DefaultStrategy         domain.Strategy
	DefaultFeeRate          domain.FeeRate
	DustAmount              uint64
	PrivacyPolicy           domain.PrivacyPolicy
	SpendUnconfirmedChange  bool
	MaxConsolidationFeeRate domain.FeeRate
	MaxConsolidationInputs  int

	EventSinkTypes    []string
	WatermillTopic    string
	MetricsRegisterer prometheus.Registerer

	rm          ports.RepoManager
	estimator   ports.FeeEstimator
	selector    *application.Selector
	utxoManager *application.UtxoManager
	notifySvc   *application.NotificationService
	sink        ports.SelectionEventSink
	subscriber  message.Subscriber
}

func (c *AppConfig) Validate() error {
	if c.DustAmount == 0 {
		return fmt.Errorf("missing dust amount threshold")
	}
	if c.DefaultFeeRate > 0 &&
		c.DefaultFeeRate < domain.FeeRate(application.MinMillisatsPerByte) {
		return fmt.Errorf("%w: default %s", domain.ErrFeeRateTooLow, c.DefaultFeeRate)
	}
	if !c.DefaultStrategy.IsValid() {
		return fmt.Errorf("%w: %d", domain.ErrUnknownStrategy, c.DefaultStrategy)
	}
	if len(c.RepoManagerType) == 0 {
		return fmt.Errorf("missing repo manager type")
	}
	if _, ok := config.SupportedDbs[c.RepoManagerType]; !ok {
		return fmt.Errorf(
			"repo manager type not supported, must be one of: %s",
			config.SupportedDbs,
		)
	}
	if len(c.FeeEstimatorType) == 0 {
		return fmt.Errorf("missing fee estimator type")
	}
	if _, ok := config.SupportedFeeEstimators[c.FeeEstimatorType]; !ok {
		return fmt.Errorf(
			"fee estimator type not supported, must be one of: %s",
			config.SupportedFeeEstimators,
		)
	}
	for _, sinkType := range c.EventSinkTypes {
		if _, ok := config.SupportedEventSinks[sinkType]; !ok {
			return fmt.Errorf(
				"event sink type %s not supported, must be one of: %s",
				sinkType, config.SupportedEventSinks,
			)
		}
	}
	if _, err := c.feeEstimator(); err != nil {
		return err
	}
	if _, err := c.eventSink(); err != nil {
		return err
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) RepoManager() ports.RepoManager {
	return c.rm
}

func (c *AppConfig) FeeEstimator() ports.FeeEstimator {
	return c.estimator
}

// EventSink returns the sink delivering to every configured sink, or nil if
// none is configured.
func (c *AppConfig) EventSink() ports.SelectionEventSink {
	return c.sink
}

// EventSubscriber returns the subscriber of the in-process watermill pubsub,
// or nil if the watermill sink is not enabled.
func (c *AppConfig) EventSubscriber() message.Subscriber {
	return c.subscriber
}

func (c *AppConfig) Selector() *application.Selector {
	return c.selectorService()
}

func (c *AppConfig) UtxoManager(ctx context.Context) (*application.UtxoManager, error) {
	return c.utxoManagerService(ctx)
}

func (c *AppConfig) NotificationService() *application.NotificationService {
	return c.notificationService()
}

func (c *AppConfig) repoManager() (ports.RepoManager, error) {
	if c.rm != nil {
		return c.rm, nil
	}

	switch c.RepoManagerType {
	case "inmemory":
		c.rm = inmemory.NewRepoManager()
		return c.rm, nil
	case "badger":
		if c.RepoManagerConfig == nil {
			return nil, fmt.Errorf("missing repo manager config args")
		}
		datadir, ok := c.RepoManagerConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be string")
		}
		rm, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.rm = rm
		return c.rm, nil
	case "postgres":
		dbConfig, ok := c.RepoManagerConfig.(postgresdb.DbConfig)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be postgresdb.DbConfig")
		}

		rm, err := postgresdb.NewRepoManager(dbConfig)
		if err != nil {
			return nil, err
		}

		c.rm = rm
		return c.rm, nil
	default:
		return nil, fmt.Errorf("unknown repo manager type")
	}
}

func (c *AppConfig) feeEstimator() (ports.FeeEstimator, error) {
	if c.estimator != nil {
		return c.estimator, nil
	}

	switch c.FeeEstimatorType {
	case "linear":
		c.estimator = feeestimator.NewLinearFeeEstimator()
	case "weight":
		c.estimator = feeestimator.NewWeightFeeEstimator(nil)
	case "fixed":
		c.estimator = feeestimator.NewFixedFeeEstimator(c.FixedTxVSize)
	default:
		return nil, fmt.Errorf("unknown fee estimator type")
	}
	return c.estimator, nil
}

func (c *AppConfig) eventSink() (ports.SelectionEventSink, error) {
	if c.sink != nil || len(c.EventSinkTypes) <= 0 {
		return c.sink, nil
	}

	sinks := make([]ports.SelectionEventSink, 0, len(c.EventSinkTypes))
	for _, sinkType := range c.EventSinkTypes {
		switch sinkType {
		case "log":
			sinks = append(sinks, loggerbus.NewEventSink(nil))
		case "watermill":
			sink, subscriber, err := watermillbus.NewGoChannelEventSink(c.WatermillTopic)
			if err != nil {
				return nil, err
			}
			c.subscriber = subscriber
			sinks = append(sinks, sink)
		case "prometheus":
			sink, err := prometheusbus.NewEventSink(c.MetricsRegisterer)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		default:
			return nil, fmt.Errorf("unknown event sink type")
		}
	}

	c.sink = fanoutbus.NewEventSink(sinks...)
	return c.sink, nil
}

func (c *AppConfig) selectorService() *application.Selector {
	if c.selector != nil {
		return c.selector
	}

	estimator, _ := c.feeEstimator()
	c.selector = application.NewSelector(coinselector.Options{
		FeeEstimator:            estimator,
		SpendUnconfirmedChange:  c.SpendUnconfirmedChange,
		PrivacyPolicy:           c.PrivacyPolicy,
		MaxConsolidationFeeRate: c.MaxConsolidationFeeRate,
		MaxConsolidationInputs:  c.MaxConsolidationInputs,
	})
	return c.selector
}

func (c *AppConfig) utxoManagerService(
	ctx context.Context,
) (*application.UtxoManager, error) {
	if c.utxoManager != nil {
		return c.utxoManager, nil
	}

	rm, err := c.repoManager()
	if err != nil {
		return nil, err
	}
	manager, err := application.NewUtxoManager(ctx, application.UtxoManagerArgs{
		RepoManager:       rm,
		Selector:          c.selectorService(),
		DefaultStrategy:   c.DefaultStrategy,
		DefaultFeeRate:    c.DefaultFeeRate,
		DefaultDustAmount: c.DustAmount,
	})
	if err != nil {
		return nil, err
	}
	c.utxoManager = manager
	return c.utxoManager, nil
}

func (c *AppConfig) notificationService() *application.NotificationService {
	if c.notifySvc != nil {
		return c.notifySvc
	}

	rm, _ := c.repoManager()
	c.notifySvc = application.NewNotificationService(rm)
	return c.notifySvc
}
