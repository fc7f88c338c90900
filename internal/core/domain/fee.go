package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MinFeeRate is the lowest fee rate accepted for a selection, 0.1 sat/vB.
const MinFeeRate = FeeRate(100)

var (
	ErrInvalidFeeRate = fmt.Errorf("invalid fee rate")

	millisatsPerSat = decimal.NewFromInt(1000)
)

// FeeRate is the cost of a transaction virtual byte, expressed in millisats
// so that fractional sats/vbyte rates are kept as exact integers.
type FeeRate uint64

// NewFeeRateFromSatsPerVByte converts a sats/vbyte rate to FeeRate.
// Sub-millisat precision is rounded to the nearest millisat.
func NewFeeRateFromSatsPerVByte(satsPerVByte float64) (FeeRate, error) {
	if math.IsNaN(satsPerVByte) || math.IsInf(satsPerVByte, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidFeeRate, satsPerVByte)
	}
	if satsPerVByte < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidFeeRate)
	}
	return toFeeRate(decimal.NewFromFloat(satsPerVByte))
}

// ParseFeeRate parses a sats/vbyte rate expressed as decimal string, like
// "1.5".
func ParseFeeRate(str string) (FeeRate, error) {
	rate, err := decimal.NewFromString(str)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidFeeRate, err)
	}
	if rate.IsNegative() {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidFeeRate)
	}
	return toFeeRate(rate)
}

// MillisatsPerVByte returns the integer representation of the rate.
func (r FeeRate) MillisatsPerVByte() uint64 {
	return uint64(r)
}

func (r FeeRate) SatsPerVByte() float64 {
	rate, _ := decimal.NewFromInt(int64(r)).Div(millisatsPerSat).Float64()
	return rate
}

// FeeForSize returns the fee amount for a transaction of the given virtual
// size. The amount is rounded up so that a non-zero rate never produces a
// zero fee.
func (r FeeRate) FeeForSize(vsize uint64) uint64 {
	millisats := uint64(r) * vsize
	fee := millisats / 1000
	if millisats%1000 != 0 {
		fee++
	}
	return fee
}

func (r FeeRate) String() string {
	return fmt.Sprintf(
		"%s sat/vB", decimal.NewFromInt(int64(r)).Div(millisatsPerSat).String(),
	)
}

func toFeeRate(satsPerVByte decimal.Decimal) (FeeRate, error) {
	millisats := satsPerVByte.Mul(millisatsPerSat).Round(0)
	if !millisats.LessThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("%w: too high", ErrInvalidFeeRate)
	}
	return FeeRate(millisats.IntPart()), nil
}
