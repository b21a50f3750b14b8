package referrer

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	beneficiary := solana.NewWallet().PublicKey()
	stranger := solana.NewWallet().PublicKey()

	newStore := func() (*Store, *EventLog) {
		events := NewEventLog(clockwork.NewFakeClock())
		return NewStore(owner, events), events
	}

	t.Run("starts disabled", func(t *testing.T) {
		store, _ := newStore()
		referrer, feeBps := store.Config()
		require.True(t, referrer.Equals(NoReferrer))
		require.Zero(t, feeBps)
		require.False(t, store.Active())
	})

	t.Run("owner sets referrer and rate", func(t *testing.T) {
		store, events := newStore()
		require.NoError(t, store.SetReferrer(owner, beneficiary))
		require.NoError(t, store.SetReferrerFee(owner, 50))

		referrer, feeBps := store.Config()
		require.True(t, referrer.Equals(beneficiary))
		require.Equal(t, uint32(50), feeBps)
		require.True(t, store.Active())

		entries := events.Entries()
		require.Len(t, entries, 2)
		require.Equal(t, "ReferrerSet", entries[0].EventName())
		require.Equal(t, "ReferrerFeeSet", entries[1].EventName())
	})

	t.Run("non-owner writes fail before validation", func(t *testing.T) {
		store, events := newStore()
		require.ErrorIs(t, store.SetReferrer(stranger, beneficiary), ErrUnauthorized)
		// the rate bound is not even looked at for an unauthorized caller
		require.ErrorIs(t, store.SetReferrerFee(stranger, MaxFeeBps+1), ErrUnauthorized)

		referrer, feeBps := store.Config()
		require.True(t, referrer.Equals(NoReferrer))
		require.Zero(t, feeBps)
		require.Empty(t, events.Entries())
	})

	t.Run("rate above cap is rejected", func(t *testing.T) {
		store, _ := newStore()
		require.ErrorIs(t, store.SetReferrerFee(owner, MaxFeeBps+1), ErrInvalidFeeRate)
		require.NoError(t, store.SetReferrerFee(owner, MaxFeeBps))
	})

	t.Run("zero address disables without touching the rate", func(t *testing.T) {
		store, _ := newStore()
		require.NoError(t, store.SetReferrer(owner, beneficiary))
		require.NoError(t, store.SetReferrerFee(owner, 200))

		require.NoError(t, store.SetReferrer(owner, NoReferrer))
		referrer, feeBps := store.Config()
		require.True(t, referrer.Equals(NoReferrer))
		require.Equal(t, uint32(200), feeBps)
		require.False(t, store.Active())

		// re-enabling restores the old rate
		require.NoError(t, store.SetReferrer(owner, beneficiary))
		require.True(t, store.Active())
	})

	t.Run("zero rate disables without touching the referrer", func(t *testing.T) {
		store, _ := newStore()
		require.NoError(t, store.SetReferrer(owner, beneficiary))
		require.NoError(t, store.SetReferrerFee(owner, 200))

		require.NoError(t, store.SetReferrerFee(owner, 0))
		referrer, _ := store.Config()
		require.True(t, referrer.Equals(beneficiary))
		require.False(t, store.Active())
	})
}
