package appconfig_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	appconfig "github.com/vulpemventures/coinselect/internal/app-config"
	"github.com/vulpemventures/coinselect/internal/core/application"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	watermillbus "github.com/vulpemventures/coinselect/internal/infrastructure/message-bus/watermill"
)

func TestAppConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := &appconfig.AppConfig{
			RepoManagerType:   "inmemory",
			FeeEstimatorType:  "linear",
			DustAmount:        546,
			EventSinkTypes:    []string{"log", "watermill", "prometheus"},
			MetricsRegisterer: prometheus.NewRegistry(),
		}
		require.NoError(t, cfg.Validate())
		require.NotNil(t, cfg.RepoManager())
		require.NotNil(t, cfg.FeeEstimator())
		require.NotNil(t, cfg.EventSink())
		require.NotNil(t, cfg.EventSubscriber())
		require.NotNil(t, cfg.NotificationService())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		messages, err := cfg.EventSubscriber().Subscribe(ctx, watermillbus.DefaultTopic)
		require.NoError(t, err)

		manager, err := cfg.UtxoManager(ctx)
		require.NoError(t, err)
		require.NotNil(t, manager)

		same, err := cfg.UtxoManager(ctx)
		require.NoError(t, err)
		require.Same(t, manager, same)

		_, err = manager.AddUtxos(ctx, []domain.Utxo{{
			UtxoKey: domain.UtxoKey{
				TxID: "0000000000000000000000000000000000000000000000000000000000000001",
			},
			Value:         100000,
			Confirmations: 1,
		}})
		require.NoError(t, err)

		result, err := manager.SelectDefault(ctx, 50000, application.SelectionOpts{
			EventSink: cfg.EventSink(),
		})
		require.NoError(t, err)
		require.True(t, result.IsSuccess())

		for _, expectedType := range []domain.SelectionEventType{
			domain.SelectionAttempted, domain.SelectionSucceeded,
		} {
			select {
			case msg := <-messages:
				msg.Ack()
				event, err := watermillbus.ParseSelectionEvent(msg)
				require.NoError(t, err)
				require.Equal(t, expectedType, event.Type)
			case <-time.After(5 * time.Second):
				t.Fatal("timeout waiting for selection event")
			}
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  *appconfig.AppConfig
		}{
			{
				name: "missing dust amount",
				cfg: &appconfig.AppConfig{
					RepoManagerType:  "inmemory",
					FeeEstimatorType: "linear",
				},
			},
			{
				name: "default fee rate too low",
				cfg: &appconfig.AppConfig{
					RepoManagerType:  "inmemory",
					FeeEstimatorType: "linear",
					DustAmount:       546,
					DefaultFeeRate:   10,
				},
			},
			{
				name: "unknown default strategy",
				cfg: &appconfig.AppConfig{
					RepoManagerType:  "inmemory",
					FeeEstimatorType: "linear",
					DustAmount:       546,
					DefaultStrategy:  domain.Strategy(42),
				},
			},
			{
				name: "missing repo manager type",
				cfg: &appconfig.AppConfig{
					FeeEstimatorType: "linear",
					DustAmount:       546,
				},
			},
			{
				name: "unknown repo manager type",
				cfg: &appconfig.AppConfig{
					RepoManagerType:  "mysql",
					FeeEstimatorType: "linear",
					DustAmount:       546,
				},
			},
			{
				name: "missing badger datadir",
				cfg: &appconfig.AppConfig{
					RepoManagerType:  "badger",
					FeeEstimatorType: "linear",
					DustAmount:       546,
				},
			},
			{
				name: "invalid postgres config",
				cfg: &appconfig.AppConfig{
					RepoManagerType:   "postgres",
					RepoManagerConfig: "postgres://localhost",
					FeeEstimatorType:  "linear",
					DustAmount:        546,
				},
			},
			{
				name: "unknown fee estimator type",
				cfg: &appconfig.AppConfig{
					RepoManagerType:  "inmemory",
					FeeEstimatorType: "exact",
					DustAmount:       546,
				},
			},
			{
				name: "unknown event sink type",
				cfg: &appconfig.AppConfig{
					RepoManagerType:  "inmemory",
					FeeEstimatorType: "linear",
					DustAmount:       546,
					EventSinkTypes:   []string{"kafka"},
				},
			},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				require.Error(t, tt.cfg.Validate())
			})
		}
	})
}
