package cpmm

import (
	"context"
	"fmt"
	"sync"

	cosmath "cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"swaprouting/pkg"
)

// Pool is a constant-product pool. It can be decoded from an on-chain SPL
// token-swap account for quoting, or constructed locally with a vault and a
// transferor so swaps settle in process. The pool charges its own trade fee
// (kept in reserves); that fee is independent of any referrer fee layered
// on top by the router.
type Pool struct {
	Version             uint8
	IsInitialized       bool
	Nonce               uint8
	TokenProgramId      solana.PublicKey
	TokenAccountA       solana.PublicKey
	TokenAccountB       solana.PublicKey
	TokenPool           solana.PublicKey
	MintA               solana.PublicKey
	MintB               solana.PublicKey
	FeeAccount          solana.PublicKey
	TradeFeeNumerator   uint64
	TradeFeeDenominator uint64
	CurveType           uint8

	PoolId solana.PublicKey

	mu       sync.Mutex
	reserveA uint64
	reserveB uint64

	vault solana.PublicKey
	bank  pkg.TokenTransferor
}

// splSwapAccount mirrors the on-chain account layout, decoded in field
// order by the binary decoder.
type splSwapAccount struct {
	Version                     uint8
	IsInitialized               bool
	Nonce                       uint8
	TokenProgramId              solana.PublicKey
	TokenAccountA               solana.PublicKey
	TokenAccountB               solana.PublicKey
	TokenPool                   solana.PublicKey
	MintA                       solana.PublicKey
	MintB                       solana.PublicKey
	FeeAccount                  solana.PublicKey
	TradeFeeNumerator           uint64
	TradeFeeDenominator         uint64
	OwnerTradeFeeNumerator      uint64
	OwnerTradeFeeDenominator    uint64
	OwnerWithdrawFeeNumerator   uint64
	OwnerWithdrawFeeDenominator uint64
	HostFeeNumerator            uint64
	HostFeeDenominator          uint64
	CurveType                   uint8
}

// NewPool creates a local pool settling through bank against vault.
func NewPool(id solana.PublicKey, mintA, mintB string, vault solana.PublicKey, feeNumerator, feeDenominator, reserveA, reserveB uint64, bank pkg.TokenTransferor) (*Pool, error) {
	if feeDenominator == 0 || feeNumerator >= feeDenominator {
		return nil, fmt.Errorf("invalid trade fee %d/%d", feeNumerator, feeDenominator)
	}
	mintAPk, err := solana.PublicKeyFromBase58(mintA)
	if err != nil {
		return nil, fmt.Errorf("invalid mint A: %w", err)
	}
	mintBPk, err := solana.PublicKeyFromBase58(mintB)
	if err != nil {
		return nil, fmt.Errorf("invalid mint B: %w", err)
	}
	return &Pool{
		IsInitialized:       true,
		MintA:               mintAPk,
		MintB:               mintBPk,
		TradeFeeNumerator:   feeNumerator,
		TradeFeeDenominator: feeDenominator,
		CurveType:           CurveConstantProduct,
		PoolId:              id,
		reserveA:            reserveA,
		reserveB:            reserveB,
		vault:               vault,
		bank:                bank,
	}, nil
}

func (p *Pool) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolName("cpmm")
}

func (p *Pool) GetID() string {
	return p.PoolId.String()
}

func (p *Pool) GetTokens() (string, string) {
	return p.MintA.String(), p.MintB.String()
}

// Vault returns the pool's custody address.
func (p *Pool) Vault() solana.PublicKey {
	return p.vault
}

// Reserves returns the current reserves in (mintA, mintB) order.
func (p *Pool) Reserves() (uint64, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reserveA, p.reserveB
}

// SetReserves replaces the reserves, e.g. from a subscription update.
func (p *Pool) SetReserves(reserveA, reserveB uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reserveA = reserveA
	p.reserveB = reserveB
}

// Decode parses an on-chain SPL token-swap account.
func (p *Pool) Decode(data []byte) error {
	if len(data) < PoolAccountSize {
		return fmt.Errorf("data too short for token-swap pool: got %d bytes", len(data))
	}

	var state splSwapAccount
	if err := bin.NewBinDecoder(data).Decode(&state); err != nil {
		return fmt.Errorf("decode token-swap account: %w", err)
	}
	if state.TradeFeeDenominator == 0 {
		return fmt.Errorf("token-swap account has zero fee denominator")
	}

	p.Version = state.Version
	p.IsInitialized = state.IsInitialized
	p.Nonce = state.Nonce
	p.TokenProgramId = state.TokenProgramId
	p.TokenAccountA = state.TokenAccountA
	p.TokenAccountB = state.TokenAccountB
	p.TokenPool = state.TokenPool
	p.MintA = state.MintA
	p.MintB = state.MintB
	p.FeeAccount = state.FeeAccount
	p.TradeFeeNumerator = state.TradeFeeNumerator
	p.TradeFeeDenominator = state.TradeFeeDenominator
	p.CurveType = state.CurveType
	return nil
}

func (p *Pool) orient(inputMint string) (reserveIn, reserveOut uint64, outputMint string, err error) {
	switch inputMint {
	case p.MintA.String():
		return p.reserveA, p.reserveB, p.MintB.String(), nil
	case p.MintB.String():
		return p.reserveB, p.reserveA, p.MintA.String(), nil
	default:
		return 0, 0, "", fmt.Errorf("mint %s not in pool %s", inputMint, p.GetID())
	}
}

// quoteOut computes the constant-product output for a fixed input, after
// the pool's trade fee. 128-bit intermediates; inputs are capped at uint64
// like the on-chain program.
func (p *Pool) quoteOut(reserveIn, reserveOut, amountIn uint64) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, fmt.Errorf("pool %s has no liquidity", p.GetID())
	}
	if amountIn == 0 {
		return 0, nil
	}

	fee := uint128.From64(amountIn).Mul64(p.TradeFeeNumerator).Div64(p.TradeFeeDenominator)
	amountInAfterFee := amountIn - fee.Lo

	numerator := uint128.From64(reserveOut).Mul64(amountInAfterFee)
	denominator := uint128.From64(reserveIn).Add64(amountInAfterFee)
	return numerator.Div(denominator).Lo, nil
}

// quoteIn computes the input required for a fixed output, grossed up for
// the trade fee. Rounds up on both divisions so the pool never undercharges.
func (p *Pool) quoteIn(reserveIn, reserveOut, amountOut uint64) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, fmt.Errorf("pool %s has no liquidity", p.GetID())
	}
	if amountOut == 0 {
		return 0, nil
	}
	if amountOut >= reserveOut {
		return 0, fmt.Errorf("pool %s cannot supply %d of output reserve %d", p.GetID(), amountOut, reserveOut)
	}

	numerator := uint128.From64(reserveIn).Mul64(amountOut)
	afterFee, rem := numerator.QuoRem64(reserveOut - amountOut)
	if rem != 0 {
		afterFee = afterFee.Add64(1)
	}

	// amountIn = ceil(afterFee * den / (den - num))
	gross, rem2 := afterFee.Mul64(p.TradeFeeDenominator).QuoRem64(p.TradeFeeDenominator - p.TradeFeeNumerator)
	if rem2 != 0 {
		gross = gross.Add64(1)
	}
	if gross.Hi != 0 {
		return 0, fmt.Errorf("required input exceeds pool range")
	}
	return gross.Lo, nil
}

func amountToUint64(amount cosmath.Int) (uint64, error) {
	if amount.IsNil() || amount.IsNegative() {
		return 0, fmt.Errorf("negative amount")
	}
	if !amount.IsUint64() {
		return 0, fmt.Errorf("amount %s exceeds pool range", amount)
	}
	return amount.Uint64(), nil
}

func (p *Pool) QuoteExactInput(ctx context.Context, inputMint string, amountIn cosmath.Int) (cosmath.Int, error) {
	in, err := amountToUint64(amountIn)
	if err != nil {
		return cosmath.ZeroInt(), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	reserveIn, reserveOut, _, err := p.orient(inputMint)
	if err != nil {
		return cosmath.ZeroInt(), err
	}
	out, err := p.quoteOut(reserveIn, reserveOut, in)
	if err != nil {
		return cosmath.ZeroInt(), err
	}
	return cosmath.NewIntFromUint64(out), nil
}

func (p *Pool) QuoteExactOutput(ctx context.Context, outputMint string, amountOut cosmath.Int) (cosmath.Int, error) {
	out, err := amountToUint64(amountOut)
	if err != nil {
		return cosmath.ZeroInt(), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// orient by the opposite side: input is the other mint
	reserveOut, reserveIn, _, err := p.orient(outputMint)
	if err != nil {
		return cosmath.ZeroInt(), err
	}
	in, err := p.quoteIn(reserveIn, reserveOut, out)
	if err != nil {
		return cosmath.ZeroInt(), err
	}
	return cosmath.NewIntFromUint64(in), nil
}

func (p *Pool) SwapExactInput(ctx context.Context, payer, recipient solana.PublicKey, inputMint string, amountIn, minAmountOut cosmath.Int) (cosmath.Int, error) {
	if p.bank == nil {
		return cosmath.ZeroInt(), fmt.Errorf("pool %s has no local settlement", p.GetID())
	}
	in, err := amountToUint64(amountIn)
	if err != nil {
		return cosmath.ZeroInt(), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	reserveIn, reserveOut, outputMint, err := p.orient(inputMint)
	if err != nil {
		return cosmath.ZeroInt(), err
	}
	out, err := p.quoteOut(reserveIn, reserveOut, in)
	if err != nil {
		return cosmath.ZeroInt(), err
	}

	outInt := cosmath.NewIntFromUint64(out)
	if !minAmountOut.IsNil() && outInt.LT(minAmountOut) {
		return cosmath.ZeroInt(), fmt.Errorf("output %s below minimum %s: %w", outInt, minAmountOut, pkg.ErrSlippageExceeded)
	}

	if err := p.bank.Transfer(ctx, inputMint, payer, p.vault, amountIn); err != nil {
		return cosmath.ZeroInt(), fmt.Errorf("pool %s take input: %w", p.GetID(), err)
	}
	if err := p.bank.Transfer(ctx, outputMint, p.vault, recipient, outInt); err != nil {
		// return the input; the swap did not happen
		if refundErr := p.bank.Transfer(ctx, inputMint, p.vault, payer, amountIn); refundErr != nil {
			return cosmath.ZeroInt(), fmt.Errorf("pool %s deliver output: %v (refund failed: %w)", p.GetID(), err, refundErr)
		}
		return cosmath.ZeroInt(), fmt.Errorf("pool %s deliver output: %w", p.GetID(), err)
	}

	p.applySwap(inputMint, in, out)
	return outInt, nil
}

func (p *Pool) SwapExactOutput(ctx context.Context, payer, recipient solana.PublicKey, outputMint string, amountOut, maxAmountIn cosmath.Int) (cosmath.Int, error) {
	if p.bank == nil {
		return cosmath.ZeroInt(), fmt.Errorf("pool %s has no local settlement", p.GetID())
	}
	out, err := amountToUint64(amountOut)
	if err != nil {
		return cosmath.ZeroInt(), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	reserveOut, reserveIn, _, err := p.orient(outputMint)
	if err != nil {
		return cosmath.ZeroInt(), err
	}
	var inputMint string
	if outputMint == p.MintA.String() {
		inputMint = p.MintB.String()
	} else {
		inputMint = p.MintA.String()
	}

	in, err := p.quoteIn(reserveIn, reserveOut, out)
	if err != nil {
		return cosmath.ZeroInt(), err
	}

	inInt := cosmath.NewIntFromUint64(in)
	if !maxAmountIn.IsNil() && inInt.GT(maxAmountIn) {
		return cosmath.ZeroInt(), fmt.Errorf("required input %s above maximum %s: %w", inInt, maxAmountIn, pkg.ErrSlippageExceeded)
	}

	if err := p.bank.Transfer(ctx, inputMint, payer, p.vault, inInt); err != nil {
		return cosmath.ZeroInt(), fmt.Errorf("pool %s take input: %w", p.GetID(), err)
	}
	if err := p.bank.Transfer(ctx, outputMint, p.vault, recipient, amountOut); err != nil {
		if refundErr := p.bank.Transfer(ctx, inputMint, p.vault, payer, inInt); refundErr != nil {
			return cosmath.ZeroInt(), fmt.Errorf("pool %s deliver output: %v (refund failed: %w)", p.GetID(), err, refundErr)
		}
		return cosmath.ZeroInt(), fmt.Errorf("pool %s deliver output: %w", p.GetID(), err)
	}

	p.applySwap(inputMint, in, out)
	return inInt, nil
}

// applySwap moves reserves after settlement. Called with the lock held.
func (p *Pool) applySwap(inputMint string, in, out uint64) {
	if inputMint == p.MintA.String() {
		p.reserveA += in
		p.reserveB -= out
	} else {
		p.reserveB += in
		p.reserveA -= out
	}
}
