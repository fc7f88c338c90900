package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

const (
	// DatadirKey is the key to customize the coinselect datadir.
	DatadirKey = "DATADIR"
	// DatabaseTypeKey is the key to customize the type of database to use.
	DatabaseTypeKey = "DATABASE_TYPE"
	// LogLevelKey is the key to customize the log level to catch more specific
	// or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// DustAmountKey is the key to customize the threshold below which change
	// is absorbed into the fee.
	DustAmountKey = "DUST_AMOUNT"
	// FeeRateKey is the key to customize the default fee rate, in sats/vbyte.
	FeeRateKey = "FEE_RATE"
	// DefaultStrategyKey is the key to customize the strategy used when none
	// is specified.
	DefaultStrategyKey = "DEFAULT_STRATEGY"
	// FeeEstimatorKey is the key to customize the fee estimation model.
	FeeEstimatorKey = "FEE_ESTIMATOR"
	// FixedTxVSizeKey is the key to customize the tx size used by the fixed
	// fee estimator.
	FixedTxVSizeKey = "FIXED_TX_VSIZE"
	// PrivacyPolicyKey is the key to customize the policy of the
	// maximize-privacy strategy.
	PrivacyPolicyKey = "PRIVACY_POLICY"
	// SpendUnconfirmedChangeKey is the key to let strategies select
	// unconfirmed change utxos.
	SpendUnconfirmedChangeKey = "SPEND_UNCONFIRMED_CHANGE"
	// MaxConsolidationFeeRateKey is the key to customize the max fee rate, in
	// sats/vbyte, at which the consolidate strategy adds extra inputs.
	MaxConsolidationFeeRateKey = "MAX_CONSOLIDATION_FEE_RATE"
	// MaxConsolidationInputsKey is the key to customize the max number of
	// inputs selected by the consolidate strategy.
	MaxConsolidationInputsKey = "MAX_CONSOLIDATION_INPUTS"
	// EventSinksKey is the key to enable one or more selection event sinks.
	EventSinksKey = "EVENT_SINKS"
	// WatermillTopicKey is the key to customize the topic of the watermill
	// event sink.
	WatermillTopicKey = "WATERMILL_TOPIC"
	// DbUserKey is user used to connect to db
	DbUserKey = "DB_USER"
	// DbPassKey is password used to connect to db
	DbPassKey = "DB_PASS"
	// DbHostKey is host where db is installed
	DbHostKey = "DB_HOST"
	// DbPortKey is port on which db is listening
	DbPortKey = "DB_PORT"
	// DbNameKey is name of database
	DbNameKey = "DB_NAME"
	// DbMigrationPath is the path to migration files
	DbMigrationPath = "DB_MIGRATION_PATH"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
)

var (
	vip *viper.Viper

	defaultDatadir                 = btcutil.AppDataDir("coinselect", false)
	defaultDbType                  = "badger"
	defaultLogLevel                = 4
	defaultDustAmount              = 546
	defaultFeeRate                 = "1"
	defaultStrategy                = domain.StrategyMinimizeFee.String()
	defaultFeeEstimator            = "linear"
	defaultPrivacyPolicy           = domain.PrivacyPolicyGroupByAddress.String()
	defaultMaxConsolidationFeeRate = "5"
	defaultMaxConsolidationInputs  = 50
	defaultEventSinks              = []string{"log"}
	defaultWatermillTopic          = "coin-selection"

	SupportedDbs = supportedType{
		"badger":   {},
		"inmemory": {},
		"postgres": {},
	}
	SupportedFeeEstimators = supportedType{
		"linear": {},
		"weight": {},
		"fixed":  {},
	}
	SupportedEventSinks = supportedType{
		"log":        {},
		"watermill":  {},
		"prometheus": {},
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("COINSELECT")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DatabaseTypeKey, defaultDbType)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(DustAmountKey, defaultDustAmount)
	vip.SetDefault(FeeRateKey, defaultFeeRate)
	vip.SetDefault(DefaultStrategyKey, defaultStrategy)
	vip.SetDefault(FeeEstimatorKey, defaultFeeEstimator)
	vip.SetDefault(PrivacyPolicyKey, defaultPrivacyPolicy)
	vip.SetDefault(SpendUnconfirmedChangeKey, false)
	vip.SetDefault(MaxConsolidationFeeRateKey, defaultMaxConsolidationFeeRate)
	vip.SetDefault(MaxConsolidationInputsKey, defaultMaxConsolidationInputs)
	vip.SetDefault(EventSinksKey, defaultEventSinks)
	vip.SetDefault(WatermillTopicKey, defaultWatermillTopic)
	vip.SetDefault(DbUserKey, "root")
	vip.SetDefault(DbPassKey, "secret")
	vip.SetDefault(DbHostKey, "127.0.0.1")
	vip.SetDefault(DbPortKey, 5432)
	vip.SetDefault(DbNameKey, "coinselect-db")
	vip.SetDefault(DbMigrationPath, "file://internal/infrastructure/storage/db/postgres/migration")
}

// Validate returns an error if any of the config values is not valid.
func Validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	dbType := GetString(DatabaseTypeKey)
	if _, ok := SupportedDbs[dbType]; !ok {
		return fmt.Errorf("unsupported database type, must be one of %s", SupportedDbs)
	}

	feeEstimator := GetString(FeeEstimatorKey)
	if _, ok := SupportedFeeEstimators[feeEstimator]; !ok {
		return fmt.Errorf(
			"unsupported fee estimator, must be one of %s", SupportedFeeEstimators,
		)
	}

	for _, sink := range GetStringSlice(EventSinksKey) {
		if _, ok := SupportedEventSinks[sink]; !ok {
			return fmt.Errorf(
				"unsupported event sink %s, must be one of %s", sink, SupportedEventSinks,
			)
		}
	}

	if GetInt(DustAmountKey) <= 0 {
		return fmt.Errorf("dust amount must be greater than zero")
	}
	if GetInt(MaxConsolidationInputsKey) <= 0 {
		return fmt.Errorf("max consolidation inputs must be greater than zero")
	}
	feeRate, err := GetFeeRate()
	if err != nil {
		return err
	}
	if feeRate < domain.MinFeeRate {
		return fmt.Errorf(
			"%w: got %s, min %s", domain.ErrFeeRateTooLow, feeRate, domain.MinFeeRate,
		)
	}
	if _, err := GetMaxConsolidationFeeRate(); err != nil {
		return err
	}
	if _, err := GetDefaultStrategy(); err != nil {
		return err
	}
	if _, err := GetPrivacyPolicy(); err != nil {
		return err
	}

	return nil
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

func GetFeeRate() (domain.FeeRate, error) {
	return domain.ParseFeeRate(GetString(FeeRateKey))
}

func GetMaxConsolidationFeeRate() (domain.FeeRate, error) {
	return domain.ParseFeeRate(GetString(MaxConsolidationFeeRateKey))
}

func GetDefaultStrategy() (domain.Strategy, error) {
	return domain.ParseStrategy(GetString(DefaultStrategyKey))
}

func GetPrivacyPolicy() (domain.PrivacyPolicy, error) {
	return domain.ParsePrivacyPolicy(GetString(PrivacyPolicyKey))
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetUint64(key string) uint64 {
	return vip.GetUint64(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func Set(key string, val interface{}) {
	vip.Set(key, val)
}

func Unset(key string) {
	vip.Set(key, nil)
}

func IsSet(key string) bool {
	return vip.IsSet(key)
}

// InitDatadir creates the datadir and its subfolders if they don't exist.
func InitDatadir() error {
	if GetString(DatabaseTypeKey) != "badger" {
		return makeDirectoryIfNotExists(GetDatadir())
	}
	return makeDirectoryIfNotExists(GetDbDir())
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	sort.Strings(types)
	return strings.Join(types, " | ")
}
