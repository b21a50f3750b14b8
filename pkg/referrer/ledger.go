package referrer

import (
	"sync"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

type ledgerKey struct {
	referrer solana.PublicKey
	mint     string
}

// Ledger maps (referrer, token mint) to an accumulated, uncollected fee
// amount. It is the single source of truth for money owed: credits come
// only from swap fee injection, debits only from collection. Entries are
// created lazily and return to zero after collection but are never removed,
// so re-querying a collected key is cheap and well-defined.
type Ledger struct {
	mu       sync.RWMutex
	balances map[ledgerKey]math.Int
}

// NewLedger creates an empty fee ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[ledgerKey]math.Int)}
}

// Credit adds amount to the (referrer, mint) entry.
func (l *Ledger) Credit(referrer solana.PublicKey, mint string, amount math.Int) {
	if amount.IsNil() || !amount.IsPositive() {
		return
	}
	key := ledgerKey{referrer: referrer, mint: mint}

	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.balances[key]
	if !ok {
		current = math.ZeroInt()
	}
	l.balances[key] = current.Add(amount)
}

// Debit removes amount from the (referrer, mint) entry. Used to revert a
// credit when the enclosing invocation fails after the effect was applied.
func (l *Ledger) Debit(referrer solana.PublicKey, mint string, amount math.Int) {
	if amount.IsNil() || !amount.IsPositive() {
		return
	}
	key := ledgerKey{referrer: referrer, mint: mint}

	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.balances[key]
	if !ok {
		return
	}
	next := current.Sub(amount)
	if next.IsNegative() {
		next = math.ZeroInt()
	}
	l.balances[key] = next
}

// Balance returns the uncollected amount for (referrer, mint). Unseen keys
// read as zero.
func (l *Ledger) Balance(referrer solana.PublicKey, mint string) math.Int {
	key := ledgerKey{referrer: referrer, mint: mint}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if amount, ok := l.balances[key]; ok {
		return amount
	}
	return math.ZeroInt()
}

// Take zeroes the (referrer, mint) entry and returns the amount it held.
// The entry itself stays in the map at zero.
func (l *Ledger) Take(referrer solana.PublicKey, mint string) math.Int {
	key := ledgerKey{referrer: referrer, mint: mint}

	l.mu.Lock()
	defer l.mu.Unlock()
	amount, ok := l.balances[key]
	if !ok || amount.IsZero() {
		return math.ZeroInt()
	}
	l.balances[key] = math.ZeroInt()
	return amount
}

// Mints returns every mint with a ledger entry for referrer, including
// entries currently at zero.
func (l *Ledger) Mints(referrer solana.PublicKey) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var mints []string
	for key := range l.balances {
		if key.referrer.Equals(referrer) {
			mints = append(mints, key.mint)
		}
	}
	return mints
}
