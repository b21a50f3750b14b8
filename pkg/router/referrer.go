package router

import (
	"context"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"swaprouting/pkg/referrer"
)

// SetReferrer changes the referrer beneficiary. Only the owner may call it;
// setting the zero address disables fee accrual without touching the rate.
func (r *Router) SetReferrer(caller, newReferrer solana.PublicKey) error {
	return r.store.SetReferrer(caller, newReferrer)
}

// SetReferrerFee changes the fee rate in basis points. Only the owner may
// call it; rates above referrer.MaxFeeBps are rejected.
func (r *Router) SetReferrerFee(caller solana.PublicKey, feeBps uint32) error {
	return r.store.SetReferrerFee(caller, feeBps)
}

// GetReferrerConfig returns the current beneficiary and fee rate.
func (r *Router) GetReferrerConfig() (solana.PublicKey, uint32) {
	return r.store.Config()
}

// CalculateReferrerFee computes the fee the current configuration would
// take from amount. With no active referrer the fee is zero.
func (r *Router) CalculateReferrerFee(amount math.Int) (math.Int, error) {
	beneficiary, feeBps := r.store.Config()
	if beneficiary.Equals(referrer.NoReferrer) || feeBps == 0 {
		return math.ZeroInt(), nil
	}
	return referrer.CalculateFee(amount, feeBps)
}

// ReferrerFees returns the uncollected balance accrued to a referrer in
// one token mint. Unknown pairs read as zero.
func (r *Router) ReferrerFees(beneficiary solana.PublicKey, mint string) math.Int {
	return r.ledger.Balance(beneficiary, mint)
}

// CollectReferrerFees pays out the caller's accrued balance in one token
// mint. The caller must be the currently configured referrer; a zero
// balance succeeds without moving tokens.
func (r *Router) CollectReferrerFees(ctx context.Context, caller solana.PublicKey, mint string) (math.Int, error) {
	amount, err := r.collector.Collect(ctx, caller, mint)
	if err != nil {
		return amount, err
	}
	if !amount.IsZero() {
		r.metrics.FeeCollectionsTotal.Inc()
	}
	return amount, nil
}

// CollectReferrerFeesMultiple pays out the caller's accrued balances in
// several token mints under one collection guard.
func (r *Router) CollectReferrerFeesMultiple(ctx context.Context, caller solana.PublicKey, mints []string) ([]math.Int, error) {
	amounts, err := r.collector.CollectMultiple(ctx, caller, mints)
	if err != nil {
		return amounts, err
	}
	for _, amount := range amounts {
		if !amount.IsZero() {
			r.metrics.FeeCollectionsTotal.Inc()
		}
	}
	return amounts, nil
}
