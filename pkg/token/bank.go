package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// ErrInsufficientFunds is returned when a transfer exceeds the sender's
// balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// TransferHook runs after a transfer of its mint settles and before the
// transfer returns. A non-nil error fails the transfer and reverses the
// balance movement. Hooks can call back into the engine, which is exactly
// how transfer-hook tokens exercise the re-entrancy paths.
type TransferHook func(ctx context.Context, mint string, from, to solana.PublicKey, amount math.Int) error

// Bank is an in-memory token custody implementing pkg.TokenTransferor.
// Balances are keyed by mint and holder.
type Bank struct {
	mu       sync.Mutex
	balances map[string]map[solana.PublicKey]math.Int
	hooks    map[string]TransferHook
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{
		balances: make(map[string]map[solana.PublicKey]math.Int),
		hooks:    make(map[string]TransferHook),
	}
}

// Mint credits amount of mint to holder out of thin air.
func (b *Bank) Mint(mint string, holder solana.PublicKey, amount math.Int) {
	if !amount.IsPositive() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(mint, holder, amount)
}

// Balance returns holder's balance for mint. Unknown holders read as zero.
func (b *Bank) Balance(mint string, holder solana.PublicKey) math.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if holders, ok := b.balances[mint]; ok {
		if balance, ok := holders[holder]; ok {
			return balance
		}
	}
	return math.ZeroInt()
}

// SetTransferHook installs a hook for mint. Passing nil removes it.
func (b *Bank) SetTransferHook(mint string, hook TransferHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hook == nil {
		delete(b.hooks, mint)
		return
	}
	b.hooks[mint] = hook
}

// Transfer moves amount of mint from one holder to another. The mint's
// transfer hook, if any, runs after the balances move and outside the bank
// lock; a hook error reverses the movement and fails the transfer.
func (b *Bank) Transfer(ctx context.Context, mint string, from, to solana.PublicKey, amount math.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("invalid transfer amount for %s", mint)
	}
	if amount.IsZero() {
		return nil
	}

	b.mu.Lock()
	balance := math.ZeroInt()
	if holders, ok := b.balances[mint]; ok {
		if current, ok := holders[from]; ok {
			balance = current
		}
	}
	if balance.LT(amount) {
		b.mu.Unlock()
		return fmt.Errorf("transfer %s from %s: %w", mint, from, ErrInsufficientFunds)
	}
	b.balances[mint][from] = balance.Sub(amount)
	b.credit(mint, to, amount)
	hook := b.hooks[mint]
	b.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, mint, from, to, amount); err != nil {
			b.mu.Lock()
			b.balances[mint][to] = b.balances[mint][to].Sub(amount)
			b.credit(mint, from, amount)
			b.mu.Unlock()
			return fmt.Errorf("transfer hook for %s: %w", mint, err)
		}
	}
	return nil
}

// credit must be called with the lock held.
func (b *Bank) credit(mint string, holder solana.PublicKey, amount math.Int) {
	holders, ok := b.balances[mint]
	if !ok {
		holders = make(map[solana.PublicKey]math.Int)
		b.balances[mint] = holders
	}
	current, ok := holders[holder]
	if !ok {
		current = math.ZeroInt()
	}
	holders[holder] = current.Add(amount)
}
