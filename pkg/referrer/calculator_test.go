package referrer

import (
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

// maxIntValue is the largest representable amount, 2^256 - 1.
func maxIntValue() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(math.MaxBitLen)), big.NewInt(1))
}

func TestCalculateFee(t *testing.T) {
	t.Run("floors the proportional share", func(t *testing.T) {
		// 1000 * 50 / 10000 = 5 exactly
		fee, err := CalculateFee(math.NewInt(1000), 50)
		require.NoError(t, err)
		require.Equal(t, math.NewInt(5), fee)

		// 999 * 50 / 10000 = 4.995 -> 4
		fee, err = CalculateFee(math.NewInt(999), 50)
		require.NoError(t, err)
		require.Equal(t, math.NewInt(4), fee)

		// 950 * 500 / 10000 = 47.5 -> 47
		fee, err = CalculateFee(math.NewInt(950), 500)
		require.NoError(t, err)
		require.Equal(t, math.NewInt(47), fee)
	})

	t.Run("small amounts round to zero", func(t *testing.T) {
		for _, amount := range []int64{1, 19, 199} {
			fee, err := CalculateFee(math.NewInt(amount), 50)
			require.NoError(t, err)
			require.True(t, fee.IsZero(), "amount %d at 50 bps should floor to zero", amount)
		}
	})

	t.Run("zero rate and zero amount", func(t *testing.T) {
		fee, err := CalculateFee(math.NewInt(1_000_000), 0)
		require.NoError(t, err)
		require.True(t, fee.IsZero())

		fee, err = CalculateFee(math.ZeroInt(), 500)
		require.NoError(t, err)
		require.True(t, fee.IsZero())
	})

	t.Run("rate above the cap is rejected", func(t *testing.T) {
		_, err := CalculateFee(math.NewInt(1000), MaxFeeBps+1)
		require.ErrorIs(t, err, ErrInvalidFeeRate)

		_, err = CalculateFee(math.NewInt(1000), MaxFeeBps)
		require.NoError(t, err)
	})

	t.Run("never exceeds the proportional share", func(t *testing.T) {
		for _, amount := range []int64{1, 7, 100, 999, 10_001, 123_456_789} {
			for _, bps := range []uint32{1, 25, 50, 100, 499, 500} {
				fee, err := CalculateFee(math.NewInt(amount), bps)
				require.NoError(t, err)

				// fee * 10000 <= amount * bps < (fee + 1) * 10000
				lhs := fee.MulRaw(FeeRateDenominator)
				exact := math.NewInt(amount).MulRaw(int64(bps))
				require.True(t, lhs.LTE(exact))
				require.True(t, fee.AddRaw(1).MulRaw(FeeRateDenominator).GT(exact))
			}
		}
	})

	t.Run("overflow fails instead of wrapping", func(t *testing.T) {
		huge := math.NewIntFromBigInt(maxIntValue())
		_, err := CalculateFee(huge, 500)
		require.ErrorIs(t, err, ErrArithmeticOverflow)
	})

	t.Run("nil and negative amounts are rejected", func(t *testing.T) {
		_, err := CalculateFee(math.Int{}, 50)
		require.ErrorIs(t, err, ErrArithmeticOverflow)

		_, err = CalculateFee(math.NewInt(-1), 50)
		require.ErrorIs(t, err, ErrArithmeticOverflow)
	})
}

func TestAddChecked(t *testing.T) {
	sum, err := AddChecked(math.NewInt(950), math.NewInt(47))
	require.NoError(t, err)
	require.Equal(t, math.NewInt(997), sum)

	huge := math.NewIntFromBigInt(maxIntValue())
	_, err = AddChecked(huge, math.OneInt())
	require.ErrorIs(t, err, ErrArithmeticOverflow)
}
