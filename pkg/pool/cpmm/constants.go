package cpmm

import "github.com/gagliardetto/solana-go"

var (
	// SplTokenSwapProgramID is the on-chain program whose pool accounts this
	// package decodes.
	SplTokenSwapProgramID = solana.MustPublicKeyFromBase58("SwaPpA9LAaLfeLi3a68M4DjnLqgtticKg6CnyNwgAC8")
)

const (
	// PoolAccountSize is the serialized size of an SPL token-swap account.
	PoolAccountSize = 324

	// CurveConstantProduct is the only curve type this package quotes.
	CurveConstantProduct = 0
)
