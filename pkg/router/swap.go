package router

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"swaprouting/pkg"
	"swaprouting/pkg/referrer"
)

// ExactInputSingleParams describes a fixed-input swap through one pool.
type ExactInputSingleParams struct {
	Payer        solana.PublicKey
	Recipient    solana.PublicKey
	PoolID       string
	InputMint    string
	AmountIn     math.Int
	MinAmountOut math.Int
}

// ExactInputParams describes a fixed-input swap along a multi-hop path.
// Path lists the token mints visited; PoolIDs[i] trades Path[i]/Path[i+1].
type ExactInputParams struct {
	Payer        solana.PublicKey
	Recipient    solana.PublicKey
	Path         []string
	PoolIDs      []string
	AmountIn     math.Int
	MinAmountOut math.Int
}

// ExactOutputSingleParams describes a fixed-output swap through one pool.
type ExactOutputSingleParams struct {
	Payer       solana.PublicKey
	Recipient   solana.PublicKey
	PoolID      string
	OutputMint  string
	AmountOut   math.Int
	MaxAmountIn math.Int
}

// ExactOutputParams describes a fixed-output swap along a multi-hop path,
// in the same path layout as ExactInputParams.
type ExactOutputParams struct {
	Payer       solana.PublicKey
	Recipient   solana.PublicKey
	Path        []string
	PoolIDs     []string
	AmountOut   math.Int
	MaxAmountIn math.Int
}

// pendingFee is the outcome of fee injection for one swap invocation: the
// computed fee, the token it was taken in, and the beneficiary credited.
// Zero-value pendingFee means the referrer layer was inactive for the call.
type pendingFee struct {
	active      bool
	beneficiary solana.PublicKey
	mint        string
	fee         math.Int
}

// injectFee is the single injection routine shared by all four call
// shapes. It computes the referrer fee on amount (always the input-side
// token), credits the ledger, and then pulls the fee into the vault. The
// ledger credit strictly precedes the transfer, so a transfer hook calling
// back into the engine observes a consistent ledger.
//
// When the configuration is inactive it touches nothing and reports an
// inactive pendingFee, leaving the caller's amounts byte-identical.
func (r *Router) injectFee(ctx context.Context, payer solana.PublicKey, mint string, amount math.Int) (pendingFee, error) {
	beneficiary, feeBps := r.store.Config()
	if beneficiary.Equals(referrer.NoReferrer) || feeBps == 0 {
		return pendingFee{}, nil
	}

	fee, err := referrer.CalculateFee(amount, feeBps)
	if err != nil {
		return pendingFee{}, err
	}
	if fee.IsZero() {
		return pendingFee{}, nil
	}

	r.ledger.Credit(beneficiary, mint, fee)
	if err := r.bank.Transfer(ctx, mint, payer, r.feeVault, fee); err != nil {
		r.ledger.Debit(beneficiary, mint, fee)
		return pendingFee{}, fmt.Errorf("referrer fee transfer: %w", err)
	}

	return pendingFee{active: true, beneficiary: beneficiary, mint: mint, fee: fee}, nil
}

// revertFee undoes a fee injection after a failed settlement, emulating the
// host ledger's all-or-nothing invocation semantics.
func (r *Router) revertFee(ctx context.Context, payer solana.PublicKey, pending pendingFee) {
	if !pending.active {
		return
	}
	r.ledger.Debit(pending.beneficiary, pending.mint, pending.fee)
	if err := r.bank.Transfer(ctx, pending.mint, r.feeVault, payer, pending.fee); err != nil {
		r.logger.Error("referrer fee refund failed",
			"mint", pending.mint, "amount", pending.fee, "error", err)
	}
}

// settleFee finalizes a fee injection once the swap settled: it emits the
// accrual event and bumps metrics.
func (r *Router) settleFee(pending pendingFee) {
	if !pending.active {
		return
	}
	r.events.EmitFeeAccrued(pending.beneficiary, pending.mint, pending.fee)
	r.metrics.FeeAccrualsTotal.WithLabelValues(pending.mint).Inc()
}

// feeAdjustedMax returns the bound the pool should enforce for an
// exact-output swap: the caller's declared maximum minus the referrer fee.
// The pool's own check of required-input against this bound is then
// equivalent to checking the fee-inclusive total against the caller's
// maximum, so bound violations surface as the pool's slippage error.
func feeAdjustedMax(maxAmountIn math.Int, pending pendingFee) math.Int {
	if maxAmountIn.IsNil() || !pending.active {
		return maxAmountIn
	}
	return maxAmountIn.Sub(pending.fee)
}

// ExactInputSingle swaps a fixed input amount through one pool and returns
// the output delivered to the recipient. The referrer fee, if active, is
// taken from the input amount before it reaches the pool.
func (r *Router) ExactInputSingle(ctx context.Context, params ExactInputSingleParams) (math.Int, error) {
	pool, ok := r.GetPool(params.PoolID)
	if !ok {
		return math.ZeroInt(), fmt.Errorf("unknown pool %s", params.PoolID)
	}

	pending, err := r.injectFee(ctx, params.Payer, params.InputMint, params.AmountIn)
	if err != nil {
		r.metrics.SwapErrorsTotal.WithLabelValues("exact_input_single").Inc()
		return math.ZeroInt(), err
	}
	adjusted := params.AmountIn
	if pending.active {
		adjusted = adjusted.Sub(pending.fee)
	}

	out, err := pool.SwapExactInput(ctx, params.Payer, params.Recipient, params.InputMint, adjusted, params.MinAmountOut)
	if err != nil {
		r.revertFee(ctx, params.Payer, pending)
		r.metrics.SwapErrorsTotal.WithLabelValues("exact_input_single").Inc()
		return math.ZeroInt(), err
	}

	r.settleFee(pending)
	r.metrics.SwapsTotal.WithLabelValues("exact_input_single").Inc()
	r.logger.Debug("exact input swap settled",
		"pool", params.PoolID, "in", adjusted, "out", out, "fee", pending.fee)
	return out, nil
}

// ExactInput swaps a fixed input amount along a multi-hop path. The
// referrer fee is taken once, in the first token of the path, before the
// first hop. The minimum-output bound applies to the final hop only.
func (r *Router) ExactInput(ctx context.Context, params ExactInputParams) (math.Int, error) {
	pools, err := r.pathPools(params.Path, params.PoolIDs)
	if err != nil {
		return math.ZeroInt(), err
	}

	// Quote the whole chain before settling anything, so a bound violation
	// surfaces while the path is still untouched.
	expectedFee, err := r.CalculateReferrerFee(params.AmountIn)
	if err != nil {
		return math.ZeroInt(), err
	}
	expected := params.AmountIn.Sub(expectedFee)
	for i, pool := range pools {
		expected, err = pool.QuoteExactInput(ctx, params.Path[i], expected)
		if err != nil {
			return math.ZeroInt(), fmt.Errorf("hop %d (%s): %w", i, pool.GetID(), err)
		}
	}
	if !params.MinAmountOut.IsNil() && expected.LT(params.MinAmountOut) {
		return math.ZeroInt(), fmt.Errorf("output %s below minimum %s: %w", expected, params.MinAmountOut, pkg.ErrSlippageExceeded)
	}

	pending, err := r.injectFee(ctx, params.Payer, params.Path[0], params.AmountIn)
	if err != nil {
		r.metrics.SwapErrorsTotal.WithLabelValues("exact_input").Inc()
		return math.ZeroInt(), err
	}
	amount := params.AmountIn
	if pending.active {
		amount = amount.Sub(pending.fee)
	}

	for i, pool := range pools {
		recipient := params.Payer
		minOut := math.Int{}
		if i == len(pools)-1 {
			recipient = params.Recipient
			minOut = params.MinAmountOut
		}

		out, err := pool.SwapExactInput(ctx, params.Payer, recipient, params.Path[i], amount, minOut)
		if err != nil {
			r.revertFee(ctx, params.Payer, pending)
			r.metrics.SwapErrorsTotal.WithLabelValues("exact_input").Inc()
			return math.ZeroInt(), fmt.Errorf("hop %d (%s): %w", i, pool.GetID(), err)
		}
		amount = out
	}

	r.settleFee(pending)
	r.metrics.SwapsTotal.WithLabelValues("exact_input").Inc()
	return amount, nil
}

// ExactOutputSingle swaps through one pool for a fixed output amount and
// returns the total input spent, referrer fee included. The caller's
// maximum-input bound is evaluated against that fee-inclusive total.
func (r *Router) ExactOutputSingle(ctx context.Context, params ExactOutputSingleParams) (math.Int, error) {
	pool, ok := r.GetPool(params.PoolID)
	if !ok {
		return math.ZeroInt(), fmt.Errorf("unknown pool %s", params.PoolID)
	}
	inputMint, err := otherMint(pool, params.OutputMint)
	if err != nil {
		return math.ZeroInt(), err
	}

	required, err := pool.QuoteExactOutput(ctx, params.OutputMint, params.AmountOut)
	if err != nil {
		return math.ZeroInt(), err
	}

	pending, err := r.injectFee(ctx, params.Payer, inputMint, required)
	if err != nil {
		r.metrics.SwapErrorsTotal.WithLabelValues("exact_output_single").Inc()
		return math.ZeroInt(), err
	}

	in, err := pool.SwapExactOutput(ctx, params.Payer, params.Recipient, params.OutputMint, params.AmountOut, feeAdjustedMax(params.MaxAmountIn, pending))
	if err != nil {
		r.revertFee(ctx, params.Payer, pending)
		r.metrics.SwapErrorsTotal.WithLabelValues("exact_output_single").Inc()
		return math.ZeroInt(), err
	}

	total := in
	if pending.active {
		total, err = referrer.AddChecked(in, pending.fee)
		if err != nil {
			r.revertFee(ctx, params.Payer, pending)
			return math.ZeroInt(), err
		}
	}

	r.settleFee(pending)
	r.metrics.SwapsTotal.WithLabelValues("exact_output_single").Inc()
	return total, nil
}

// ExactOutput swaps along a multi-hop path for a fixed output amount and
// returns the total input spent in the path's originating token, referrer
// fee included.
func (r *Router) ExactOutput(ctx context.Context, params ExactOutputParams) (math.Int, error) {
	pools, err := r.pathPools(params.Path, params.PoolIDs)
	if err != nil {
		return math.ZeroInt(), err
	}

	// Work the required amounts backward from the requested output.
	needs := make([]math.Int, len(params.Path))
	needs[len(needs)-1] = params.AmountOut
	for i := len(pools) - 1; i >= 0; i-- {
		in, err := pools[i].QuoteExactOutput(ctx, params.Path[i+1], needs[i+1])
		if err != nil {
			return math.ZeroInt(), fmt.Errorf("hop %d (%s): %w", i, pools[i].GetID(), err)
		}
		needs[i] = in
	}

	pending, err := r.injectFee(ctx, params.Payer, params.Path[0], needs[0])
	if err != nil {
		r.metrics.SwapErrorsTotal.WithLabelValues("exact_output").Inc()
		return math.ZeroInt(), err
	}

	spent := math.ZeroInt()
	for i, pool := range pools {
		recipient := params.Payer
		if i == len(pools)-1 {
			recipient = params.Recipient
		}
		maxIn := needs[i]
		if i == 0 {
			maxIn = feeAdjustedMax(params.MaxAmountIn, pending)
			if params.MaxAmountIn.IsNil() {
				maxIn = math.Int{}
			}
		}

		in, err := pool.SwapExactOutput(ctx, params.Payer, recipient, params.Path[i+1], needs[i+1], maxIn)
		if err != nil {
			r.revertFee(ctx, params.Payer, pending)
			r.metrics.SwapErrorsTotal.WithLabelValues("exact_output").Inc()
			return math.ZeroInt(), fmt.Errorf("hop %d (%s): %w", i, pool.GetID(), err)
		}
		if i == 0 {
			spent = in
		}
	}

	total := spent
	if pending.active {
		total, err = referrer.AddChecked(spent, pending.fee)
		if err != nil {
			r.revertFee(ctx, params.Payer, pending)
			return math.ZeroInt(), err
		}
	}

	r.settleFee(pending)
	r.metrics.SwapsTotal.WithLabelValues("exact_output").Inc()
	return total, nil
}

// QuoteExactInputSingle mirrors ExactInputSingle without settling: it
// returns the pool output for the fee-adjusted input and the fee that
// would accrue. No state is written.
func (r *Router) QuoteExactInputSingle(ctx context.Context, poolID, inputMint string, amountIn math.Int) (out math.Int, fee math.Int, err error) {
	pool, ok := r.GetPool(poolID)
	if !ok {
		return math.ZeroInt(), math.ZeroInt(), fmt.Errorf("unknown pool %s", poolID)
	}

	fee = math.ZeroInt()
	beneficiary, feeBps := r.store.Config()
	if !beneficiary.Equals(referrer.NoReferrer) && feeBps > 0 {
		fee, err = referrer.CalculateFee(amountIn, feeBps)
		if err != nil {
			return math.ZeroInt(), math.ZeroInt(), err
		}
	}

	out, err = pool.QuoteExactInput(ctx, inputMint, amountIn.Sub(fee))
	if err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	return out, fee, nil
}

func (r *Router) pathPools(path []string, poolIDs []string) ([]pkg.Pool, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("path needs at least two mints, got %d", len(path))
	}
	if len(poolIDs) != len(path)-1 {
		return nil, fmt.Errorf("path of %d mints needs %d pools, got %d", len(path), len(path)-1, len(poolIDs))
	}

	pools := make([]pkg.Pool, len(poolIDs))
	for i, poolID := range poolIDs {
		pool, ok := r.GetPool(poolID)
		if !ok {
			return nil, fmt.Errorf("unknown pool %s", poolID)
		}
		a, b := pool.GetTokens()
		if !((a == path[i] && b == path[i+1]) || (b == path[i] && a == path[i+1])) {
			return nil, fmt.Errorf("pool %s does not trade %s/%s", poolID, path[i], path[i+1])
		}
		pools[i] = pool
	}
	return pools, nil
}

func otherMint(pool pkg.Pool, mint string) (string, error) {
	a, b := pool.GetTokens()
	switch mint {
	case a:
		return b, nil
	case b:
		return a, nil
	default:
		return "", fmt.Errorf("mint %s not in pool %s", mint, pool.GetID())
	}
}
