package referrer

import (
	"math/big"

	"cosmossdk.io/math"
)

const (
	// FeeRateDenominator is the basis-point precision unit (1/10000).
	FeeRateDenominator = 10_000

	// MaxFeeBps caps the referrer fee rate at 5%.
	MaxFeeBps = 500
)

// CalculateFee returns floor(amount * feeBps / 10000).
//
// Rounding is always down so the fee never exceeds the proportional share;
// remainder value stays with the swap participant. The multiplication is
// overflow-checked against the 256-bit amount ceiling and fails with
// ErrArithmeticOverflow rather than wrapping.
func CalculateFee(amount math.Int, feeBps uint32) (math.Int, error) {
	if feeBps > MaxFeeBps {
		return math.ZeroInt(), ErrInvalidFeeRate
	}
	if amount.IsNil() || amount.IsNegative() {
		return math.ZeroInt(), ErrArithmeticOverflow
	}
	if feeBps == 0 || amount.IsZero() {
		return math.ZeroInt(), nil
	}

	product := new(big.Int).Mul(amount.BigInt(), big.NewInt(int64(feeBps)))
	if product.BitLen() > math.MaxBitLen {
		return math.ZeroInt(), ErrArithmeticOverflow
	}
	fee := product.Quo(product, big.NewInt(FeeRateDenominator))
	return math.NewIntFromBigInt(fee), nil
}

// AddChecked returns a + b, failing with ErrArithmeticOverflow when the sum
// would exceed the 256-bit amount ceiling. Used for fee-inclusive totals on
// the exact-output path.
func AddChecked(a, b math.Int) (math.Int, error) {
	sum := new(big.Int).Add(a.BigInt(), b.BigInt())
	if sum.BitLen() > math.MaxBitLen {
		return math.ZeroInt(), ErrArithmeticOverflow
	}
	return math.NewIntFromBigInt(sum), nil
}
