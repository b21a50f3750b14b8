package cpmm

import (
	"context"
	"encoding/binary"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"swaprouting/pkg"
	"swaprouting/pkg/token"
)

var (
	testMintA = solana.NewWallet().PublicKey()
	testMintB = solana.NewWallet().PublicKey()
)

func newTestPool(t *testing.T, feeNum, feeDen, reserveA, reserveB uint64) (*Pool, *token.Bank) {
	t.Helper()
	bank := token.NewBank()
	vault := solana.NewWallet().PublicKey()
	pool, err := NewPool(solana.NewWallet().PublicKey(), testMintA.String(), testMintB.String(), vault, feeNum, feeDen, reserveA, reserveB, bank)
	require.NoError(t, err)
	bank.Mint(testMintA.String(), vault, math.NewIntFromUint64(reserveA))
	bank.Mint(testMintB.String(), vault, math.NewIntFromUint64(reserveB))
	return pool, bank
}

func TestQuoteExactInput(t *testing.T) {
	ctx := context.Background()

	t.Run("constant product with zero fee", func(t *testing.T) {
		pool, _ := newTestPool(t, 0, 10000, 1000, 1000)
		// floor(1000 * 100 / 1100) = 90
		out, err := pool.QuoteExactInput(ctx, testMintA.String(), math.NewInt(100))
		require.NoError(t, err)
		require.Equal(t, math.NewInt(90), out)
	})

	t.Run("trade fee reduces the output", func(t *testing.T) {
		noFee, _ := newTestPool(t, 0, 10000, 1_000_000, 1_000_000)
		withFee, _ := newTestPool(t, 25, 10000, 1_000_000, 1_000_000)

		outNoFee, err := noFee.QuoteExactInput(ctx, testMintA.String(), math.NewInt(10_000))
		require.NoError(t, err)
		outWithFee, err := withFee.QuoteExactInput(ctx, testMintA.String(), math.NewInt(10_000))
		require.NoError(t, err)
		require.True(t, outWithFee.LT(outNoFee))
	})

	t.Run("orientation", func(t *testing.T) {
		pool, _ := newTestPool(t, 0, 10000, 1000, 4000)
		// A in: floor(4000*100/1100) = 363
		out, err := pool.QuoteExactInput(ctx, testMintA.String(), math.NewInt(100))
		require.NoError(t, err)
		require.Equal(t, math.NewInt(363), out)
		// B in: floor(1000*100/4100) = 24
		out, err = pool.QuoteExactInput(ctx, testMintB.String(), math.NewInt(100))
		require.NoError(t, err)
		require.Equal(t, math.NewInt(24), out)
	})

	t.Run("unknown mint", func(t *testing.T) {
		pool, _ := newTestPool(t, 0, 10000, 1000, 1000)
		_, err := pool.QuoteExactInput(ctx, solana.NewWallet().PublicKey().String(), math.NewInt(100))
		require.Error(t, err)
	})
}

func TestQuoteExactOutput(t *testing.T) {
	ctx := context.Background()

	t.Run("rounds the required input up", func(t *testing.T) {
		pool, _ := newTestPool(t, 0, 10000, 1000, 1000)
		// ceil(1000 * 90 / 910) = 99
		in, err := pool.QuoteExactOutput(ctx, testMintB.String(), math.NewInt(90))
		require.NoError(t, err)
		require.Equal(t, math.NewInt(99), in)
	})

	t.Run("round trip never undercharges", func(t *testing.T) {
		pool, _ := newTestPool(t, 25, 10000, 1_000_000, 2_000_000)
		for _, amountOut := range []int64{1, 97, 1000, 54_321} {
			in, err := pool.QuoteExactOutput(ctx, testMintB.String(), math.NewInt(amountOut))
			require.NoError(t, err)
			out, err := pool.QuoteExactInput(ctx, testMintA.String(), in)
			require.NoError(t, err)
			require.True(t, out.GTE(math.NewInt(amountOut)),
				"paying %s for %d should yield at least that much, got %s", in, amountOut, out)
		}
	})

	t.Run("cannot drain the reserve", func(t *testing.T) {
		pool, _ := newTestPool(t, 0, 10000, 1000, 1000)
		_, err := pool.QuoteExactOutput(ctx, testMintB.String(), math.NewInt(1000))
		require.Error(t, err)
	})
}

func TestSwapExactInput(t *testing.T) {
	ctx := context.Background()
	payer := solana.NewWallet().PublicKey()

	t.Run("settles through the bank", func(t *testing.T) {
		pool, bank := newTestPool(t, 0, 10000, 1000, 1000)
		bank.Mint(testMintA.String(), payer, math.NewInt(100))

		out, err := pool.SwapExactInput(ctx, payer, payer, testMintA.String(), math.NewInt(100), math.Int{})
		require.NoError(t, err)
		require.Equal(t, math.NewInt(90), out)
		require.True(t, bank.Balance(testMintA.String(), payer).IsZero())
		require.Equal(t, math.NewInt(90), bank.Balance(testMintB.String(), payer))

		reserveA, reserveB := pool.Reserves()
		require.Equal(t, uint64(1100), reserveA)
		require.Equal(t, uint64(910), reserveB)
	})

	t.Run("minimum output bound", func(t *testing.T) {
		pool, bank := newTestPool(t, 0, 10000, 1000, 1000)
		bank.Mint(testMintA.String(), payer, math.NewInt(100))

		_, err := pool.SwapExactInput(ctx, payer, payer, testMintA.String(), math.NewInt(100), math.NewInt(91))
		require.ErrorIs(t, err, pkg.ErrSlippageExceeded)
		// nothing moved
		require.Equal(t, math.NewInt(100), bank.Balance(testMintA.String(), payer))
		reserveA, _ := pool.Reserves()
		require.Equal(t, uint64(1000), reserveA)
	})

	t.Run("payer without funds", func(t *testing.T) {
		pool, _ := newTestPool(t, 0, 10000, 1000, 1000)
		_, err := pool.SwapExactInput(ctx, payer, payer, testMintA.String(), math.NewInt(100), math.Int{})
		require.ErrorIs(t, err, token.ErrInsufficientFunds)
	})
}

func TestSwapExactOutput(t *testing.T) {
	ctx := context.Background()
	payer := solana.NewWallet().PublicKey()

	t.Run("charges the quoted input", func(t *testing.T) {
		pool, bank := newTestPool(t, 0, 10000, 1000, 1000)
		bank.Mint(testMintA.String(), payer, math.NewInt(200))

		in, err := pool.SwapExactOutput(ctx, payer, payer, testMintB.String(), math.NewInt(90), math.NewInt(99))
		require.NoError(t, err)
		require.Equal(t, math.NewInt(99), in)
		require.Equal(t, math.NewInt(101), bank.Balance(testMintA.String(), payer))
		require.Equal(t, math.NewInt(90), bank.Balance(testMintB.String(), payer))
	})

	t.Run("maximum input bound", func(t *testing.T) {
		pool, bank := newTestPool(t, 0, 10000, 1000, 1000)
		bank.Mint(testMintA.String(), payer, math.NewInt(200))

		_, err := pool.SwapExactOutput(ctx, payer, payer, testMintB.String(), math.NewInt(90), math.NewInt(98))
		require.ErrorIs(t, err, pkg.ErrSlippageExceeded)
		require.Equal(t, math.NewInt(200), bank.Balance(testMintA.String(), payer))
	})
}

func TestDecode(t *testing.T) {
	data := make([]byte, PoolAccountSize)
	data[0] = 1 // version
	data[1] = 1 // initialized
	data[2] = 7 // nonce
	offset := 3
	putKey := func(key solana.PublicKey) {
		copy(data[offset:offset+32], key.Bytes())
		offset += 32
	}
	tokenAccountA := solana.NewWallet().PublicKey()
	tokenAccountB := solana.NewWallet().PublicKey()
	putKey(solana.TokenProgramID)
	putKey(tokenAccountA)
	putKey(tokenAccountB)
	putKey(solana.NewWallet().PublicKey()) // pool mint
	putKey(testMintA)
	putKey(testMintB)
	putKey(solana.NewWallet().PublicKey()) // fee account
	binary.LittleEndian.PutUint64(data[offset:], 25)
	binary.LittleEndian.PutUint64(data[offset+8:], 10000)
	// owner and host fee fields stay zero
	data[offset+64] = CurveConstantProduct

	pool := &Pool{}
	require.NoError(t, pool.Decode(data))
	require.Equal(t, uint8(1), pool.Version)
	require.True(t, pool.IsInitialized)
	require.True(t, pool.MintA.Equals(testMintA))
	require.True(t, pool.MintB.Equals(testMintB))
	require.True(t, pool.TokenAccountA.Equals(tokenAccountA))
	require.Equal(t, uint64(25), pool.TradeFeeNumerator)
	require.Equal(t, uint64(10000), pool.TradeFeeDenominator)
	require.Equal(t, uint8(CurveConstantProduct), pool.CurveType)

	t.Run("short data", func(t *testing.T) {
		require.Error(t, new(Pool).Decode(data[:100]))
	})

	t.Run("zero fee denominator", func(t *testing.T) {
		bad := make([]byte, PoolAccountSize)
		require.Error(t, new(Pool).Decode(bad))
	})
}

func TestUpdateFromAccountData(t *testing.T) {
	pool, _ := newTestPool(t, 0, 10000, 1000, 1000)
	pool.TokenAccountA = solana.NewWallet().PublicKey()
	pool.TokenAccountB = solana.NewWallet().PublicKey()

	vaultData := func(amount uint64) []byte {
		data := make([]byte, 165)
		binary.LittleEndian.PutUint64(data[tokenAccountAmountOffset:], amount)
		return data
	}

	require.NoError(t, pool.UpdateFromAccountData(pool.TokenAccountA.String(), vaultData(5000)))
	require.NoError(t, pool.UpdateFromAccountData(pool.TokenAccountB.String(), vaultData(6000)))

	reserveA, reserveB := pool.Reserves()
	require.Equal(t, uint64(5000), reserveA)
	require.Equal(t, uint64(6000), reserveB)

	t.Run("unknown account", func(t *testing.T) {
		err := pool.UpdateFromAccountData(solana.NewWallet().PublicKey().String(), vaultData(1))
		require.Error(t, err)
	})

	t.Run("short vault data", func(t *testing.T) {
		err := pool.UpdateFromAccountData(pool.TokenAccountA.String(), make([]byte, 10))
		require.Error(t, err)
	})
}
