package pkg

import (
	"context"
	"errors"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// ProtocolName identifies the DEX protocol a pool belongs to
type ProtocolName string

// ErrSlippageExceeded is returned by pools when a swap cannot satisfy the
// caller's minimum-output or maximum-input bound. Callers layered above the
// pool (router, fee injection) pass it through unchanged.
var ErrSlippageExceeded = errors.New("slippage exceeded")

// TokenTransferor moves token amounts between addresses. A transfer may fail
// (e.g. insufficient balance) and may trigger callee logic before returning:
// transfer-hook tokens can call back into the engine mid-transfer.
type TokenTransferor interface {
	Transfer(ctx context.Context, mint string, from, to solana.PublicKey, amount math.Int) error
}

// Pool is a swap venue for a single token pair. Quotes are read-only;
// the swap methods settle token movements through the pool's transferor
// and enforce the caller's bound.
type Pool interface {
	ProtocolName() ProtocolName
	GetID() string
	GetTokens() (string, string)

	// QuoteExactInput returns the output amount for a fixed input.
	QuoteExactInput(ctx context.Context, inputMint string, amountIn math.Int) (math.Int, error)

	// QuoteExactOutput returns the input amount required for a fixed output.
	QuoteExactOutput(ctx context.Context, outputMint string, amountOut math.Int) (math.Int, error)

	// SwapExactInput swaps a fixed input amount and returns the output
	// delivered to recipient. Fails with ErrSlippageExceeded if the output
	// would be below minAmountOut.
	SwapExactInput(ctx context.Context, payer, recipient solana.PublicKey, inputMint string, amountIn, minAmountOut math.Int) (math.Int, error)

	// SwapExactOutput swaps for a fixed output amount and returns the input
	// taken from payer. Fails with ErrSlippageExceeded if the required input
	// would exceed maxAmountIn.
	SwapExactOutput(ctx context.Context, payer, recipient solana.PublicKey, outputMint string, amountOut, maxAmountIn math.Int) (math.Int, error)
}

// Protocol discovers pools for a protocol family
type Protocol interface {
	ProtocolName() ProtocolName
	FetchPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]Pool, error)
	FetchPoolByID(ctx context.Context, poolID string) (Pool, error)
}
