package referrer

import (
	"context"
	"fmt"
	"sync/atomic"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"swaprouting/pkg"
)

// Collector is the withdrawal gateway for accumulated referrer fees. It
// applies checks-effects-interactions: the ledger entry is zeroed before
// the outbound transfer, so a re-entrant call made from inside the transfer
// observes a zero balance. A single mutual-exclusion guard covers every
// collection entry point; nested entry fails with ErrReentrantCall no
// matter which token or referrer the nested call targets.
type Collector struct {
	store  *Store
	ledger *Ledger
	bank   pkg.TokenTransferor
	vault  solana.PublicKey
	events *EventLog

	collecting atomic.Bool
}

// NewCollector creates a collection gateway paying out of vault.
func NewCollector(store *Store, ledger *Ledger, bank pkg.TokenTransferor, vault solana.PublicKey, events *EventLog) *Collector {
	return &Collector{
		store:  store,
		ledger: ledger,
		bank:   bank,
		vault:  vault,
		events: events,
	}
}

// Collect withdraws the caller's accumulated balance for one mint and
// returns the amount paid out. A zero balance is a no-op, not an error.
func (c *Collector) Collect(ctx context.Context, caller solana.PublicKey, mint string) (math.Int, error) {
	if !c.collecting.CompareAndSwap(false, true) {
		return math.ZeroInt(), ErrReentrantCall
	}
	defer c.collecting.Store(false)

	return c.collectOne(ctx, caller, mint)
}

// CollectMultiple applies the single-token algorithm once per mint, in
// order, inside one critical section. Duplicate mints are each processed;
// the second occurrence of an already-zeroed entry returns zero.
func (c *Collector) CollectMultiple(ctx context.Context, caller solana.PublicKey, mints []string) ([]math.Int, error) {
	if !c.collecting.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}
	defer c.collecting.Store(false)

	amounts := make([]math.Int, 0, len(mints))
	for _, mint := range mints {
		amount, err := c.collectOne(ctx, caller, mint)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, amount)
	}
	return amounts, nil
}

func (c *Collector) collectOne(ctx context.Context, caller solana.PublicKey, mint string) (math.Int, error) {
	// The referrer identity is read fresh, never cached: a caller that was
	// the referrer when fees accrued but has since been replaced cannot
	// collect.
	referrer, _ := c.store.Config()
	if referrer.Equals(NoReferrer) || !caller.Equals(referrer) {
		return math.ZeroInt(), ErrUnauthorized
	}

	amount := c.ledger.Take(referrer, mint)
	if amount.IsZero() {
		return math.ZeroInt(), nil
	}

	if err := c.bank.Transfer(ctx, mint, c.vault, referrer, amount); err != nil {
		// Emulates the host ledger's all-or-nothing semantics: a failed
		// payout leaves the balance collectable.
		c.ledger.Credit(referrer, mint, amount)
		return math.ZeroInt(), fmt.Errorf("fee payout for %s: %w", mint, err)
	}

	c.events.EmitFeeCollected(referrer, mint, amount)
	return amount, nil
}
