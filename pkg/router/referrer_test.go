package router

import (
	"context"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"swaprouting/pkg/referrer"
)

func TestRouterReferrerConfig(t *testing.T) {
	f := newRouterFixture(t)

	t.Run("delegates owner checks", func(t *testing.T) {
		stranger := solana.NewWallet().PublicKey()
		require.ErrorIs(t, f.router.SetReferrer(stranger, f.beneficiary), referrer.ErrUnauthorized)
		require.ErrorIs(t, f.router.SetReferrerFee(stranger, 50), referrer.ErrUnauthorized)

		require.NoError(t, f.router.SetReferrer(f.owner, f.beneficiary))
		require.NoError(t, f.router.SetReferrerFee(f.owner, 50))

		got, feeBps := f.router.GetReferrerConfig()
		require.True(t, got.Equals(f.beneficiary))
		require.Equal(t, uint32(50), feeBps)
	})

	t.Run("fee preview follows the live config", func(t *testing.T) {
		fee, err := f.router.CalculateReferrerFee(math.NewInt(1000))
		require.NoError(t, err)
		require.Equal(t, math.NewInt(5), fee)

		require.NoError(t, f.router.SetReferrerFee(f.owner, 0))
		fee, err = f.router.CalculateReferrerFee(math.NewInt(1000))
		require.NoError(t, err)
		require.True(t, fee.IsZero())
	})
}

func TestRouterAccrueAndCollect(t *testing.T) {
	ctx := context.Background()
	f := newRouterFixture(t)
	f.enableFee(t, 500)

	// Three swaps across two input tokens accrue into two ledger entries.
	f.bank.Mint(f.mintA, f.payer, math.NewInt(2000))
	f.bank.Mint(f.mintB, f.payer, math.NewInt(1000))

	for i := 0; i < 2; i++ {
		_, err := f.router.ExactInputSingle(ctx, ExactInputSingleParams{
			Payer:     f.payer,
			Recipient: f.payer,
			PoolID:    f.poolAB.GetID(),
			InputMint: f.mintA,
			AmountIn:  math.NewInt(1000),
		})
		require.NoError(t, err)
	}
	_, err := f.router.ExactInputSingle(ctx, ExactInputSingleParams{
		Payer:     f.payer,
		Recipient: f.payer,
		PoolID:    f.poolBC.GetID(),
		InputMint: f.mintB,
		AmountIn:  math.NewInt(1000),
	})
	require.NoError(t, err)

	// 2 x floor(1000*500/10000) = 100 in A, 50 in B
	require.Equal(t, math.NewInt(100), f.router.ReferrerFees(f.beneficiary, f.mintA))
	require.Equal(t, math.NewInt(50), f.router.ReferrerFees(f.beneficiary, f.mintB))

	// Accrued balances match what the vault actually holds.
	require.Equal(t, math.NewInt(100), f.bank.Balance(f.mintA, f.feeVault))
	require.Equal(t, math.NewInt(50), f.bank.Balance(f.mintB, f.feeVault))

	t.Run("single collect", func(t *testing.T) {
		amount, err := f.router.CollectReferrerFees(ctx, f.beneficiary, f.mintA)
		require.NoError(t, err)
		require.Equal(t, math.NewInt(100), amount)
		require.Equal(t, math.NewInt(100), f.bank.Balance(f.mintA, f.beneficiary))
		require.True(t, f.router.ReferrerFees(f.beneficiary, f.mintA).IsZero())
	})

	t.Run("batch collect including an emptied mint", func(t *testing.T) {
		amounts, err := f.router.CollectReferrerFeesMultiple(ctx, f.beneficiary, []string{f.mintA, f.mintB})
		require.NoError(t, err)
		require.Equal(t, []math.Int{math.ZeroInt(), math.NewInt(50)}, amounts)
		require.Equal(t, math.NewInt(50), f.bank.Balance(f.mintB, f.beneficiary))
	})

	t.Run("non-referrer cannot collect", func(t *testing.T) {
		_, err := f.router.CollectReferrerFees(ctx, f.payer, f.mintA)
		require.ErrorIs(t, err, referrer.ErrUnauthorized)
	})
}
