package main

import (
	"time"

	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

type QuoteResponse struct {
	InputMint            string `json:"inputMint"`
	OutputMint           string `json:"outputMint"`
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	ReferrerFee          string `json:"referrerFee"`
	ReferrerFeeBps       uint32 `json:"referrerFeeBps"`
	PoolID               string `json:"poolId"`
	SlippageBps          int    `json:"slippageBps"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	InUiAmount           string `json:"inUiAmount,omitempty"`
	OutUiAmount          string `json:"outUiAmount,omitempty"`
}

type ReferrerConfigResponse struct {
	Referrer string `json:"referrer"`
	FeeBps   uint32 `json:"feeBps"`
	Active   bool   `json:"active"`
}

type SetReferrerRequest struct {
	Caller   string  `json:"caller"`
	Referrer *string `json:"referrer,omitempty"`
	FeeBps   *uint32 `json:"feeBps,omitempty"`
}

type FeesResponse struct {
	Referrer string            `json:"referrer"`
	Balances map[string]string `json:"balances"`
}

type CollectRequest struct {
	Caller string   `json:"caller"`
	Mints  []string `json:"mints"`
}

type CollectResponse struct {
	Collected map[string]string `json:"collected"`
}

type SwapRequest struct {
	Payer        string `json:"payer"`
	Recipient    string `json:"recipient,omitempty"`
	PoolID       string `json:"poolId"`
	InputMint    string `json:"inputMint"`
	AmountIn     string `json:"amountIn"`
	MinAmountOut string `json:"minAmountOut,omitempty"`
}

type SwapResponse struct {
	AmountOut string `json:"amountOut"`
}

type PoolInfo struct {
	PoolID   string `json:"poolId"`
	Protocol string `json:"protocol"`
	MintA    string `json:"mintA"`
	MintB    string `json:"mintB"`
}

type HealthResponse struct {
	Status          string    `json:"status"`
	Pools           int       `json:"pools"`
	Uptime          string    `json:"uptime"`
	SubscriptionsOK bool      `json:"subscriptionsOk"`
	Timestamp       time.Time `json:"timestamp"`
}

type FaucetRequest struct {
	Mint    string `json:"mint"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// uiAmount renders a raw token amount as a decimal string shifted by the
// mint's decimals. Zero decimals returns the raw amount unchanged.
func uiAmount(amount math.Int, decimals int32) string {
	if decimals == 0 {
		return amount.String()
	}
	return decimal.NewFromBigInt(amount.BigInt(), -decimals).String()
}
