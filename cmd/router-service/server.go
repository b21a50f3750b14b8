package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"swaprouting/pkg/referrer"
	"swaprouting/pkg/router"
	"swaprouting/pkg/subscription"
	"swaprouting/pkg/token"
)

type server struct {
	router    *router.Router
	bank      *token.Bank
	manager   *subscription.Manager // nil without a -ws endpoint
	logger    *slog.Logger
	startTime time.Time
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/quote", s.handleQuote)
	mux.HandleFunc("/swap", s.handleSwap)
	mux.HandleFunc("/pools", s.handlePools)
	mux.HandleFunc("/referrer/config", s.handleReferrerConfig)
	mux.HandleFunc("/referrer/set", s.handleReferrerSet)
	mux.HandleFunc("/referrer/fees", s.handleReferrerFees)
	mux.HandleFunc("/referrer/collect", s.handleReferrerCollect)
	mux.HandleFunc("/faucet", s.handleFaucet)
	mux.HandleFunc("/health", s.handleHealth)
}

// handleFaucet mints tokens into an account. Settlement is in-process, so
// local and staging environments need a way to fund test accounts.
func (s *server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FaucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	account, err := solana.PublicKeyFromBase58(req.Account)
	if err != nil {
		writeError(w, fmt.Sprintf("invalid account: %v", err), http.StatusBadRequest)
		return
	}
	amount, ok := math.NewIntFromString(req.Amount)
	if !ok || amount.LTE(math.ZeroInt()) {
		writeError(w, "amount must be a positive integer", http.StatusBadRequest)
		return
	}

	s.bank.Mint(req.Mint, account, amount)
	s.logger.Info("minted", "mint", req.Mint, "account", account, "amount", amount)
	writeJSON(w, http.StatusOK, map[string]string{
		"balance": s.bank.Balance(req.Mint, account).String(),
	})
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	inputMint := query.Get("input")
	outputMint := query.Get("output")
	amountParam := query.Get("amount")
	if inputMint == "" || outputMint == "" || amountParam == "" {
		writeError(w, "missing required parameters: input, output, amount", http.StatusBadRequest)
		return
	}

	amountIn, ok := math.NewIntFromString(amountParam)
	if !ok || amountIn.LTE(math.ZeroInt()) {
		writeError(w, "amount must be a positive integer", http.StatusBadRequest)
		return
	}

	slippageBps := 50
	if v := query.Get("slippageBps"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 || parsed > 10000 {
			writeError(w, "invalid slippageBps parameter (must be 0-10000)", http.StatusBadRequest)
			return
		}
		slippageBps = parsed
	}

	pool, _, err := s.router.BestQuote(r.Context(), inputMint, outputMint, amountIn)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	out, fee, err := s.router.QuoteExactInputSingle(r.Context(), pool.GetID(), inputMint, amountIn)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	_, feeBps := s.router.GetReferrerConfig()
	minAmountOut := out.Mul(math.NewInt(int64(10000 - slippageBps))).Quo(math.NewInt(10000))

	resp := QuoteResponse{
		InputMint:            inputMint,
		OutputMint:           outputMint,
		InAmount:             amountIn.String(),
		OutAmount:            out.String(),
		ReferrerFee:          fee.String(),
		ReferrerFeeBps:       feeBps,
		PoolID:               pool.GetID(),
		SlippageBps:          slippageBps,
		OtherAmountThreshold: minAmountOut.String(),
	}
	if v := query.Get("inputDecimals"); v != "" {
		if decimals, err := strconv.Atoi(v); err == nil {
			resp.InUiAmount = uiAmount(amountIn, int32(decimals))
		}
	}
	if v := query.Get("outputDecimals"); v != "" {
		if decimals, err := strconv.Atoi(v); err == nil {
			resp.OutUiAmount = uiAmount(out, int32(decimals))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleSwap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	payer, err := solana.PublicKeyFromBase58(req.Payer)
	if err != nil {
		writeError(w, fmt.Sprintf("invalid payer: %v", err), http.StatusBadRequest)
		return
	}
	recipient := payer
	if req.Recipient != "" {
		recipient, err = solana.PublicKeyFromBase58(req.Recipient)
		if err != nil {
			writeError(w, fmt.Sprintf("invalid recipient: %v", err), http.StatusBadRequest)
			return
		}
	}
	amountIn, ok := math.NewIntFromString(req.AmountIn)
	if !ok || amountIn.LTE(math.ZeroInt()) {
		writeError(w, "amountIn must be a positive integer", http.StatusBadRequest)
		return
	}
	minAmountOut := math.Int{}
	if req.MinAmountOut != "" {
		minAmountOut, ok = math.NewIntFromString(req.MinAmountOut)
		if !ok {
			writeError(w, "minAmountOut must be an integer", http.StatusBadRequest)
			return
		}
	}

	out, err := s.router.ExactInputSingle(r.Context(), router.ExactInputSingleParams{
		Payer:        payer,
		Recipient:    recipient,
		PoolID:       req.PoolID,
		InputMint:    req.InputMint,
		AmountIn:     amountIn,
		MinAmountOut: minAmountOut,
	})
	if err != nil {
		writeError(w, err.Error(), swapStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, SwapResponse{AmountOut: out.String()})
}

func (s *server) handlePools(w http.ResponseWriter, r *http.Request) {
	pools := s.router.Pools()
	infos := make([]PoolInfo, 0, len(pools))
	for _, pool := range pools {
		mintA, mintB := pool.GetTokens()
		infos = append(infos, PoolInfo{
			PoolID:   pool.GetID(),
			Protocol: string(pool.ProtocolName()),
			MintA:    mintA,
			MintB:    mintB,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *server) handleReferrerConfig(w http.ResponseWriter, r *http.Request) {
	beneficiary, feeBps := s.router.GetReferrerConfig()
	writeJSON(w, http.StatusOK, ReferrerConfigResponse{
		Referrer: beneficiary.String(),
		FeeBps:   feeBps,
		Active:   !beneficiary.Equals(referrer.NoReferrer) && feeBps > 0,
	})
}

// handleReferrerSet updates the referrer address, the fee rate, or both.
// The caller must be the configured owner.
func (s *server) handleReferrerSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SetReferrerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	caller, err := solana.PublicKeyFromBase58(req.Caller)
	if err != nil {
		writeError(w, fmt.Sprintf("invalid caller: %v", err), http.StatusBadRequest)
		return
	}
	if req.Referrer == nil && req.FeeBps == nil {
		writeError(w, "nothing to set: provide referrer and/or feeBps", http.StatusBadRequest)
		return
	}

	if req.Referrer != nil {
		newReferrer := referrer.NoReferrer
		if *req.Referrer != "" {
			newReferrer, err = solana.PublicKeyFromBase58(*req.Referrer)
			if err != nil {
				writeError(w, fmt.Sprintf("invalid referrer: %v", err), http.StatusBadRequest)
				return
			}
		}
		if err := s.router.SetReferrer(caller, newReferrer); err != nil {
			writeError(w, err.Error(), referrerStatus(err))
			return
		}
	}
	if req.FeeBps != nil {
		if err := s.router.SetReferrerFee(caller, *req.FeeBps); err != nil {
			writeError(w, err.Error(), referrerStatus(err))
			return
		}
	}

	s.handleReferrerConfig(w, r)
}

func (s *server) handleReferrerFees(w http.ResponseWriter, r *http.Request) {
	referrerParam := r.URL.Query().Get("referrer")
	beneficiary, err := solana.PublicKeyFromBase58(referrerParam)
	if err != nil {
		writeError(w, fmt.Sprintf("invalid referrer: %v", err), http.StatusBadRequest)
		return
	}

	mints := strings.Split(r.URL.Query().Get("mints"), ",")
	balances := make(map[string]string)
	for _, mint := range mints {
		mint = strings.TrimSpace(mint)
		if mint == "" {
			continue
		}
		balances[mint] = s.router.ReferrerFees(beneficiary, mint).String()
	}

	writeJSON(w, http.StatusOK, FeesResponse{
		Referrer: beneficiary.String(),
		Balances: balances,
	})
}

func (s *server) handleReferrerCollect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	caller, err := solana.PublicKeyFromBase58(req.Caller)
	if err != nil {
		writeError(w, fmt.Sprintf("invalid caller: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Mints) == 0 {
		writeError(w, "at least one mint is required", http.StatusBadRequest)
		return
	}

	amounts, err := s.router.CollectReferrerFeesMultiple(r.Context(), caller, req.Mints)
	if err != nil {
		writeError(w, err.Error(), referrerStatus(err))
		return
	}

	collected := make(map[string]string, len(req.Mints))
	for i, mint := range req.Mints {
		collected[mint] = amounts[i].String()
	}
	writeJSON(w, http.StatusOK, CollectResponse{Collected: collected})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	subsOK := true
	if s.manager != nil {
		subsOK = s.manager.IsConnected()
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		Pools:           len(s.router.Pools()),
		Uptime:          time.Since(s.startTime).Round(time.Second).String(),
		SubscriptionsOK: subsOK,
		Timestamp:       time.Now(),
	})
}

func swapStatus(err error) int {
	switch {
	case errors.Is(err, referrer.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func referrerStatus(err error) int {
	switch {
	case errors.Is(err, referrer.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, referrer.ErrInvalidFeeRate):
		return http.StatusBadRequest
	case errors.Is(err, referrer.ErrReentrantCall):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
