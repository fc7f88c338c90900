package domain

import (
	"fmt"
	"strings"
)

const (
	StrategyMinimizeFee Strategy = iota
	StrategyMinimizeChange
	StrategyOldestFirst
	StrategyPrivacyFocused
	StrategyMaximizePrivacy
	StrategyConsolidate
	StrategyAvoidChange

	// StrategyCoinControl labels the selections made of utxos chosen by the
	// user. It is not an algorithm and can't be used to select utxos.
	StrategyCoinControl
)

var (
	ErrUnknownStrategy = fmt.Errorf("unknown coin selection strategy")

	strategyString = map[Strategy]string{
		StrategyMinimizeFee:     "minimize-fee",
		StrategyMinimizeChange:  "minimize-change",
		StrategyOldestFirst:     "oldest-first",
		StrategyPrivacyFocused:  "privacy-focused",
		StrategyMaximizePrivacy: "maximize-privacy",
		StrategyConsolidate:     "consolidate",
		StrategyAvoidChange:     "avoid-change",
	}
)

// Strategy identifies one of the supported coin selection algorithms.
type Strategy int

func (s Strategy) String() string {
	if s == StrategyCoinControl {
		return "coin-control"
	}
	if str, ok := strategyString[s]; ok {
		return str
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// IsValid returns whether the strategy is one of the supported ones.
func (s Strategy) IsValid() bool {
	_, ok := strategyString[s]
	return ok
}

// Strategies returns the list of all supported strategies, in order.
func Strategies() []Strategy {
	return []Strategy{
		StrategyMinimizeFee,
		StrategyMinimizeChange,
		StrategyOldestFirst,
		StrategyPrivacyFocused,
		StrategyMaximizePrivacy,
		StrategyConsolidate,
		StrategyAvoidChange,
	}
}

// ParseStrategy returns the strategy identified by the given name.
// Both kebab-case and snake_case names are accepted.
func ParseStrategy(str string) (Strategy, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(str)), "_", "-")
	for s, n := range strategyString {
		if n == name {
			return s, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownStrategy, str)
}

const (
	PrivacyPolicyGroupByAddress PrivacyPolicy = iota
	PrivacyPolicyMinimizeLinkage
)

var (
	ErrUnknownPrivacyPolicy = fmt.Errorf("unknown privacy policy")

	privacyPolicyString = map[PrivacyPolicy]string{
		PrivacyPolicyGroupByAddress:  "group-by-address",
		PrivacyPolicyMinimizeLinkage: "minimize-linkage",
	}
)

// PrivacyPolicy tunes the maximize-privacy strategy: either spend all the
// outputs locked to the same address together, or link as few distinct
// addresses as possible.
type PrivacyPolicy int

func (p PrivacyPolicy) String() string {
	return privacyPolicyString[p]
}

func ParsePrivacyPolicy(str string) (PrivacyPolicy, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(str)), "_", "-")
	for p, n := range privacyPolicyString {
		if n == name {
			return p, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownPrivacyPolicy, str)
}
