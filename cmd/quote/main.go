package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"swaprouting/pkg"
	"swaprouting/pkg/config"
	"swaprouting/pkg/protocol"
	"swaprouting/pkg/referrer"
	"swaprouting/pkg/sol"
)

type QuoteResponse struct {
	InputMint            string `json:"inputMint"`
	OutputMint           string `json:"outputMint"`
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	ReferrerFee          string `json:"referrerFee"`
	ReferrerFeeBps       uint32 `json:"referrerFeeBps"`
	PoolID               string `json:"poolId"`
	Protocol             string `json:"protocol"`
	SlippageBps          int    `json:"slippageBps"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
}

type QuoteError struct {
	Error string `json:"error"`
}

var (
	rpcEndpoints = flag.String("rpc", "", "Comma-separated Solana RPC endpoints (reads from .env if not specified)")
	inputMint    = flag.String("input", "", "Input token mint address (required)")
	outputMint   = flag.String("output", "", "Output token mint address (required)")
	amount       = flag.String("amount", "", "Input amount in smallest units (required)")
	slippageBps  = flag.Int("slippage", 50, "Slippage tolerance in basis points")
	feeBps       = flag.Uint("feebps", 0, "Referrer fee in basis points to preview (0-500)")
	rateLimit    = flag.Int("ratelimit", 20, "RPC requests per second limit per endpoint")
	jsonOutput   = flag.Bool("json", true, "Output as JSON")
	useRpcPool   = flag.Bool("use-pool", true, "Use RPC pool for load balancing")
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	flag.Parse()

	if *inputMint == "" || *outputMint == "" || *amount == "" {
		fmt.Fprintln(os.Stderr, "Error: Missing required arguments")
		fmt.Fprintln(os.Stderr, "\nUsage:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nExample:")
		fmt.Fprintln(os.Stderr, "  quote -input So11111111111111111111111111111111111111112 \\")
		fmt.Fprintln(os.Stderr, "        -output EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v \\")
		fmt.Fprintln(os.Stderr, "        -amount 1000000000 -feebps 50")
		os.Exit(1)
	}

	inTokenAddr, err := solana.PublicKeyFromBase58(*inputMint)
	if err != nil {
		outputError(fmt.Sprintf("Invalid input mint address: %v", err))
		os.Exit(1)
	}
	outTokenAddr, err := solana.PublicKeyFromBase58(*outputMint)
	if err != nil {
		outputError(fmt.Sprintf("Invalid output mint address: %v", err))
		os.Exit(1)
	}

	amountIn, ok := math.NewIntFromString(*amount)
	if !ok || amountIn.LTE(math.ZeroInt()) {
		outputError("Invalid amount: must be a positive integer")
		os.Exit(1)
	}
	if *feeBps > referrer.MaxFeeBps {
		outputError(fmt.Sprintf("Invalid feebps: must be at most %d", referrer.MaxFeeBps))
		os.Exit(1)
	}

	ctx := context.Background()

	var endpoints []string
	if *rpcEndpoints != "" {
		endpoints = strings.Split(*rpcEndpoints, ",")
		for i := range endpoints {
			endpoints[i] = strings.TrimSpace(endpoints[i])
		}
	} else {
		endpoints = config.GetRPCEndpoints()
		if len(endpoints) == 0 {
			outputError("No RPC endpoints configured. Set RPC_ENDPOINTS in .env or use -rpc flag")
			os.Exit(1)
		}
	}

	var solClient *sol.Client
	if *useRpcPool && len(endpoints) > 1 {
		rpcPool, err := sol.NewRPCPool(ctx, endpoints, "", *rateLimit)
		if err != nil {
			outputError(fmt.Sprintf("Failed to create RPC pool: %v", err))
			os.Exit(1)
		}
		solClient = rpcPool.GetClient()
		if !*jsonOutput {
			log.Printf("Using RPC pool with %d endpoints", rpcPool.Size())
		}
	} else {
		solClient, err = sol.NewClient(ctx, endpoints[0], "", *rateLimit)
		if err != nil {
			outputError(fmt.Sprintf("Failed to create Solana client: %v", err))
			os.Exit(1)
		}
	}

	proto := protocol.NewCpmm(solClient)
	pools, err := proto.FetchPoolsByPair(ctx, inTokenAddr.String(), outTokenAddr.String())
	if err != nil {
		outputError(fmt.Sprintf("Failed to query pools: %v", err))
		os.Exit(1)
	}
	if len(pools) == 0 {
		outputError("No pools found for this token pair")
		os.Exit(1)
	}
	if !*jsonOutput {
		log.Printf("Found %d pools", len(pools))
	}

	// The referrer fee comes off the input before it reaches the pool, so
	// quote the pools with the fee-adjusted amount.
	fee := math.ZeroInt()
	if *feeBps > 0 {
		fee, err = referrer.CalculateFee(amountIn, uint32(*feeBps))
		if err != nil {
			outputError(fmt.Sprintf("Failed to calculate referrer fee: %v", err))
			os.Exit(1)
		}
	}
	swapAmount := amountIn.Sub(fee)

	var bestPool pkg.Pool
	bestOut := math.ZeroInt()
	for _, pool := range pools {
		out, err := pool.QuoteExactInput(ctx, inTokenAddr.String(), swapAmount)
		if err != nil {
			continue
		}
		if out.GT(bestOut) {
			bestOut = out
			bestPool = pool
		}
	}
	if bestPool == nil {
		outputError("No pool could quote this amount")
		os.Exit(1)
	}

	minAmountOut := bestOut.Mul(math.NewInt(int64(10000 - *slippageBps))).Quo(math.NewInt(10000))

	response := QuoteResponse{
		InputMint:            inTokenAddr.String(),
		OutputMint:           outTokenAddr.String(),
		InAmount:             amountIn.String(),
		OutAmount:            bestOut.String(),
		ReferrerFee:          fee.String(),
		ReferrerFeeBps:       uint32(*feeBps),
		PoolID:               bestPool.GetID(),
		Protocol:             string(bestPool.ProtocolName()),
		SlippageBps:          *slippageBps,
		OtherAmountThreshold: minAmountOut.String(),
	}

	if *jsonOutput {
		jsonData, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			outputError(fmt.Sprintf("Failed to marshal JSON: %v", err))
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	} else {
		fmt.Printf("\n=== Quote Results ===\n")
		fmt.Printf("Pool ID: %s\n", bestPool.GetID())
		fmt.Printf("Input: %s %s\n", amountIn.String(), *inputMint)
		fmt.Printf("Referrer fee: %s (%d bps)\n", fee.String(), *feeBps)
		fmt.Printf("Output: %s %s\n", bestOut.String(), *outputMint)
		fmt.Printf("Minimum Output (with %d bps slippage): %s\n", *slippageBps, minAmountOut.String())
	}
}

func outputError(msg string) {
	if *jsonOutput {
		errResp := QuoteError{Error: msg}
		jsonData, _ := json.MarshalIndent(errResp, "", "  ")
		fmt.Fprintln(os.Stderr, string(jsonData))
	} else {
		log.Println("Error:", msg)
	}
}
