package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	appconfig "github.com/vulpemventures/coinselect/internal/app-config"
	"github.com/vulpemventures/coinselect/internal/config"
	"github.com/vulpemventures/coinselect/internal/core/application"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	postgresdb "github.com/vulpemventures/coinselect/internal/infrastructure/storage/db/postgres"
)

var colorRed = string("\033[31m")

// getUtxoManager builds the utxo manager from the env config. The returned
// cleanup func must be called before exiting.
func getUtxoManager(
	ctx context.Context,
) (*application.UtxoManager, *appconfig.AppConfig, func(), error) {
	appCfg, err := newAppConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	manager, err := appCfg.UtxoManager(ctx)
	if err != nil {
		appCfg.RepoManager().Close()
		return nil, nil, nil, err
	}

	cleanup := func() { appCfg.RepoManager().Close() }
	return manager, appCfg, cleanup, nil
}

func newAppConfig() (*appconfig.AppConfig, error) {
	dbType := config.GetString(config.DatabaseTypeKey)
	var repoManagerConfig interface{}
	switch dbType {
	case "badger":
		repoManagerConfig = config.GetDbDir()
	case "postgres":
		repoManagerConfig = postgresdb.DbConfig{
			DbUser:             config.GetString(config.DbUserKey),
			DbPassword:         config.GetString(config.DbPassKey),
			DbHost:             config.GetString(config.DbHostKey),
			DbPort:             config.GetInt(config.DbPortKey),
			DbName:             config.GetString(config.DbNameKey),
			MigrationSourceURL: config.GetString(config.DbMigrationPath),
		}
	}

	// Errors are already caught by config validation.
	feeRate, _ := config.GetFeeRate()
	maxConsolidationFeeRate, _ := config.GetMaxConsolidationFeeRate()
	strategy, _ := config.GetDefaultStrategy()
	privacyPolicy, _ := config.GetPrivacyPolicy()

	appCfg := &appconfig.AppConfig{
		RepoManagerType:         dbType,
		RepoManagerConfig:       repoManagerConfig,
		FeeEstimatorType:        config.GetString(config.FeeEstimatorKey),
		FixedTxVSize:            config.GetUint64(config.FixedTxVSizeKey),
		DefaultStrategy:         strategy,
		DefaultFeeRate:          feeRate,
		DustAmount:              uint64(config.GetInt(config.DustAmountKey)),
		PrivacyPolicy:           privacyPolicy,
		SpendUnconfirmedChange:  config.GetBool(config.SpendUnconfirmedChangeKey),
		MaxConsolidationFeeRate: maxConsolidationFeeRate,
		MaxConsolidationInputs:  config.GetInt(config.MaxConsolidationInputsKey),
		EventSinkTypes:          config.GetStringSlice(config.EventSinksKey),
		WatermillTopic:          config.GetString(config.WatermillTopicKey),
	}
	if err := appCfg.Validate(); err != nil {
		return nil, err
	}
	return appCfg, nil
}

func parseOutpoints(args []string) ([]domain.UtxoKey, error) {
	keys := make([]domain.UtxoKey, 0, len(args))
	for _, arg := range args {
		for _, str := range strings.Split(arg, ",") {
			if str = strings.TrimSpace(str); str == "" {
				continue
			}
			key, err := domain.ParseUtxoKey(str)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
	}
	if len(keys) <= 0 {
		return nil, fmt.Errorf("missing outpoints")
	}
	return keys, nil
}

type utxoView struct {
	Outpoint      string  `json:"outpoint"`
	Value         uint64  `json:"value"`
	ValueBtc      float64 `json:"value_btc"`
	Confirmations uint32  `json:"confirmations"`
	IsChange      bool    `json:"is_change"`
	Frozen        bool    `json:"frozen"`
	Address       string  `json:"address,omitempty"`
	AccountName   string  `json:"account_name,omitempty"`
}

func toUtxoViews(utxos []domain.Utxo) []utxoView {
	views := make([]utxoView, 0, len(utxos))
	for _, u := range utxos {
		views = append(views, utxoView{
			Outpoint:      u.Key().String(),
			Value:         u.Value,
			ValueBtc:      btcutil.Amount(u.Value).ToBTC(),
			Confirmations: u.Confirmations,
			IsChange:      u.IsChange,
			Frozen:        u.Frozen,
			Address:       u.Address,
			AccountName:   u.AccountName,
		})
	}
	return views
}

type selectionView struct {
	Success      bool       `json:"success"`
	Strategy     string     `json:"strategy"`
	Utxos        []utxoView `json:"utxos,omitempty"`
	TargetAmount uint64     `json:"target_amount,omitempty"`
	FeeAmount    uint64     `json:"fee_amount,omitempty"`
	ChangeAmount uint64     `json:"change_amount,omitempty"`
	TotalAmount  uint64     `json:"total_amount,omitempty"`
	Available    uint64     `json:"available,omitempty"`
	Required     uint64     `json:"required,omitempty"`
	Missing      uint64     `json:"missing,omitempty"`
}

func toSelectionView(
	result domain.SelectionResult, strategy string,
) selectionView {
	switch res := result.(type) {
	case *domain.Selection:
		return selectionView{
			Success:      true,
			Strategy:     strategy,
			Utxos:        toUtxoViews(res.Utxos),
			TargetAmount: res.TargetAmount,
			FeeAmount:    res.FeeAmount,
			ChangeAmount: res.ChangeAmount,
			TotalAmount:  res.TotalAmount(),
		}
	case *domain.InsufficientFunds:
		return selectionView{
			Strategy:  strategy,
			Available: res.Available,
			Required:  res.Required,
			Missing:   res.Missing(),
		}
	default:
		return selectionView{Strategy: strategy}
	}
}

func printJSON(v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %s", err)
	}
	fmt.Println(string(buf))
	return nil
}

func printErr(err error) {
	msg := fmt.Sprintf("%s%s", colorRed, capitalize(err.Error()))
	fmt.Fprintln(os.Stderr, msg)
}

func capitalize(s string) string {
	if len(s) <= 0 {
		return s
	}
	ss := strings.ToUpper(s[0:1])
	ss += s[1:]
	return ss
}

func formatVersion() string {
	return fmt.Sprintf(
		"\nVersion: %s\nCommit: %s\nDate: %s", version, commit, date,
	)
}
