package application

import (
	"strings"

	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
	coinselector "github.com/vulpemventures/coinselect/internal/infrastructure/coin-selector"
)

var (
	coinSelectorByType = map[domain.Strategy]CoinSelectorFactory{
		domain.StrategyMinimizeFee:     coinselector.NewMinimizeFeeCoinSelector,
		domain.StrategyMinimizeChange:  coinselector.NewMinimizeChangeCoinSelector,
		domain.StrategyOldestFirst:     coinselector.NewOldestFirstCoinSelector,
		domain.StrategyPrivacyFocused:  coinselector.NewPrivacyFocusedCoinSelector,
		domain.StrategyMaximizePrivacy: coinselector.NewMaximizePrivacyCoinSelector,
		domain.StrategyConsolidate:     coinselector.NewConsolidateCoinSelector,
		domain.StrategyAvoidChange:     coinselector.NewAvoidChangeCoinSelector,
	}

	DefaultStrategy     = domain.StrategyMinimizeFee
	DefaultDustAmount   = uint64(546)
	DefaultFeeRate      = domain.FeeRate(1000)
	MinMillisatsPerByte = domain.MinFeeRate.MillisatsPerVByte()
)

type CoinSelectorFactory func(opts coinselector.Options) ports.CoinSelector

// SelectionOpts are the optional params of a coin selection request. Nil
// values fall back to the manager defaults, explicit ones are validated as
// they are.
//   - FeeRate - (optional) The fee rate in millisats per vbyte.
//   - DustAmount - (optional) The threshold below which change is absorbed into the fee.
//   - EventSink - (optional) The sink notified about the selection.
type SelectionOpts struct {
	FeeRate    *domain.FeeRate
	DustAmount *uint64
	EventSink  ports.SelectionEventSink
}

type UtxoInfo struct {
	Spendable Utxos
	Locked    Utxos
}

type BalanceInfo domain.Balance

type Utxos []domain.Utxo

func (u Utxos) Keys() []domain.UtxoKey {
	keys := make([]domain.UtxoKey, 0, len(u))
	for _, utxo := range u {
		keys = append(keys, utxo.Key())
	}
	return keys
}

func (u Utxos) Info() []domain.UtxoInfo {
	info := make([]domain.UtxoInfo, 0, len(u))
	for _, utxo := range u {
		info = append(info, utxo.Info())
	}
	return info
}

func (u Utxos) TotalAmount() uint64 {
	total := uint64(0)
	for _, utxo := range u {
		total += utxo.Value
	}
	return total
}

type UtxoKeys []domain.UtxoKey

func (u UtxoKeys) String() string {
	str := make([]string, 0, len(u))
	for _, key := range u {
		str = append(str, key.String())
	}
	return strings.Join(str, ", ")
}

// unique returns the list of keys without duplicates, preserving the order.
func (u UtxoKeys) unique() UtxoKeys {
	seen := make(map[domain.UtxoKey]struct{}, len(u))
	keys := make(UtxoKeys, 0, len(u))
	for _, key := range u {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

type UtxosInfo []domain.UtxoInfo

func (u UtxosInfo) Keys() []domain.UtxoKey {
	keys := make([]domain.UtxoKey, 0, len(u))
	for _, utxo := range u {
		keys = append(keys, utxo.Key())
	}
	return keys
}
