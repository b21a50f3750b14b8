package token

import (
	"context"
	"errors"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestBankTransfer(t *testing.T) {
	ctx := context.Background()
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()
	const mint = "mintX"

	t.Run("moves balances", func(t *testing.T) {
		bank := NewBank()
		bank.Mint(mint, alice, math.NewInt(100))

		require.NoError(t, bank.Transfer(ctx, mint, alice, bob, math.NewInt(40)))
		require.Equal(t, math.NewInt(60), bank.Balance(mint, alice))
		require.Equal(t, math.NewInt(40), bank.Balance(mint, bob))
	})

	t.Run("zero amount is a no-op", func(t *testing.T) {
		bank := NewBank()
		require.NoError(t, bank.Transfer(ctx, mint, alice, bob, math.ZeroInt()))
		require.True(t, bank.Balance(mint, bob).IsZero())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		bank := NewBank()
		bank.Mint(mint, alice, math.NewInt(10))

		err := bank.Transfer(ctx, mint, alice, bob, math.NewInt(11))
		require.ErrorIs(t, err, ErrInsufficientFunds)
		require.Equal(t, math.NewInt(10), bank.Balance(mint, alice))

		// unknown sender reads as zero
		err = bank.Transfer(ctx, mint, bob, alice, math.NewInt(1))
		require.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("negative and nil amounts are rejected", func(t *testing.T) {
		bank := NewBank()
		bank.Mint(mint, alice, math.NewInt(10))
		require.Error(t, bank.Transfer(ctx, mint, alice, bob, math.NewInt(-1)))
		require.Error(t, bank.Transfer(ctx, mint, alice, bob, math.Int{}))
	})
}

func TestBankTransferHook(t *testing.T) {
	ctx := context.Background()
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()
	const mint = "mintX"

	t.Run("hook observes the settled transfer", func(t *testing.T) {
		bank := NewBank()
		bank.Mint(mint, alice, math.NewInt(100))

		var seenTo solana.PublicKey
		var seenBalance math.Int
		bank.SetTransferHook(mint, func(ctx context.Context, m string, from, to solana.PublicKey, amount math.Int) error {
			seenTo = to
			seenBalance = bank.Balance(m, to)
			return nil
		})

		require.NoError(t, bank.Transfer(ctx, mint, alice, bob, math.NewInt(40)))
		require.True(t, seenTo.Equals(bob))
		require.Equal(t, math.NewInt(40), seenBalance)
	})

	t.Run("hook error reverses the movement", func(t *testing.T) {
		bank := NewBank()
		bank.Mint(mint, alice, math.NewInt(100))

		hookErr := errors.New("rejected by token program")
		bank.SetTransferHook(mint, func(ctx context.Context, m string, from, to solana.PublicKey, amount math.Int) error {
			return hookErr
		})

		err := bank.Transfer(ctx, mint, alice, bob, math.NewInt(40))
		require.ErrorIs(t, err, hookErr)
		require.Equal(t, math.NewInt(100), bank.Balance(mint, alice))
		require.True(t, bank.Balance(mint, bob).IsZero())
	})

	t.Run("removing the hook restores plain transfers", func(t *testing.T) {
		bank := NewBank()
		bank.Mint(mint, alice, math.NewInt(100))
		bank.SetTransferHook(mint, func(ctx context.Context, m string, from, to solana.PublicKey, amount math.Int) error {
			return errors.New("always fails")
		})
		bank.SetTransferHook(mint, nil)

		require.NoError(t, bank.Transfer(ctx, mint, alice, bob, math.NewInt(40)))
	})

	t.Run("hooks are per mint", func(t *testing.T) {
		bank := NewBank()
		bank.Mint(mint, alice, math.NewInt(100))
		bank.Mint("mintY", alice, math.NewInt(100))

		bank.SetTransferHook("mintY", func(ctx context.Context, m string, from, to solana.PublicKey, amount math.Int) error {
			return errors.New("always fails")
		})

		require.NoError(t, bank.Transfer(ctx, mint, alice, bob, math.NewInt(1)))
		require.Error(t, bank.Transfer(ctx, "mintY", alice, bob, math.NewInt(1)))
	})
}
