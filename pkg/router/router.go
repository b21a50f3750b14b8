package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"swaprouting/pkg"
	"swaprouting/pkg/referrer"
)

// Config holds the dependencies and settings for a Router.
type Config struct {
	// Owner may change the referrer configuration.
	Owner solana.PublicKey

	// FeeVault is the address holding accrued referrer fees until collection.
	FeeVault solana.PublicKey

	// Bank settles token movements for fees and collections.
	Bank pkg.TokenTransferor

	Logger        *slog.Logger
	Clock         clockwork.Clock        // optional, wall clock by default
	PrometheusReg prometheus.Registerer  // optional
}

func (c *Config) validate() error {
	if c.Owner.IsZero() {
		return errors.New("owner address is required")
	}
	if c.FeeVault.IsZero() {
		return errors.New("fee vault address is required")
	}
	if c.Bank == nil {
		return errors.New("token transferor is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Router executes swaps through registered pool collaborators and layers
// the referrer fee on top of them. Fees are always taken in the token the
// caller spends: the input token of a single swap, the first token of a
// multi-hop path. When no referrer is configured (or the rate is zero) the
// router forwards nominal amounts unchanged and performs no fee writes.
type Router struct {
	bank      pkg.TokenTransferor
	feeVault  solana.PublicKey
	store     *referrer.Store
	ledger    *referrer.Ledger
	collector *referrer.Collector
	events    *referrer.EventLog
	logger    *slog.Logger
	metrics   *Metrics

	mu        sync.RWMutex
	pools     map[string]pkg.Pool
	protocols []pkg.Protocol
}

// NewRouter constructs a router with an empty pool registry and a disabled
// referrer configuration.
func NewRouter(cfg *Config) (*Router, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid router configuration: %w", err)
	}

	events := referrer.NewEventLog(cfg.Clock)
	store := referrer.NewStore(cfg.Owner, events)
	ledger := referrer.NewLedger()

	return &Router{
		bank:      cfg.Bank,
		feeVault:  cfg.FeeVault,
		store:     store,
		ledger:    ledger,
		collector: referrer.NewCollector(store, ledger, cfg.Bank, cfg.FeeVault, events),
		events:    events,
		logger:    cfg.Logger,
		metrics:   NewMetrics(cfg.PrometheusReg),
		pools:     make(map[string]pkg.Pool),
	}, nil
}

// Events returns the referrer event log.
func (r *Router) Events() *referrer.EventLog {
	return r.events
}

// RegisterProtocol adds protocols used by QueryAllPools.
func (r *Router) RegisterProtocol(protocols ...pkg.Protocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protocols = append(r.protocols, protocols...)
}

// RegisterPool adds a pool to the registry, replacing any pool with the
// same ID.
func (r *Router) RegisterPool(pool pkg.Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[pool.GetID()] = pool
}

// GetPool looks up a registered pool by ID.
func (r *Router) GetPool(poolID string) (pkg.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pool, ok := r.pools[poolID]
	return pool, ok
}

// Pools returns all registered pools.
func (r *Router) Pools() []pkg.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pools := make([]pkg.Pool, 0, len(r.pools))
	for _, pool := range r.pools {
		pools = append(pools, pool)
	}
	return pools
}

// QueryAllPools asks every registered protocol for pools trading the pair
// and registers what it finds. Protocol failures are logged and skipped.
func (r *Router) QueryAllPools(ctx context.Context, baseMint, quoteMint string) error {
	r.mu.RLock()
	protocols := make([]pkg.Protocol, len(r.protocols))
	copy(protocols, r.protocols)
	r.mu.RUnlock()

	for _, proto := range protocols {
		pools, err := proto.FetchPoolsByPair(ctx, baseMint, quoteMint)
		if err != nil {
			r.logger.Warn("fetching pools from protocol failed",
				"protocol", proto.ProtocolName(), "error", err)
			continue
		}
		for _, pool := range pools {
			r.RegisterPool(pool)
		}
	}
	return nil
}

// BestQuote quotes every registered pool trading the pair concurrently and
// returns the pool with the highest output for amountIn.
func (r *Router) BestQuote(ctx context.Context, inputMint, outputMint string, amountIn math.Int) (pkg.Pool, math.Int, error) {
	candidates := r.poolsForPair(inputMint, outputMint)
	if len(candidates) == 0 {
		return nil, math.ZeroInt(), fmt.Errorf("no pools found for %s/%s", inputMint, outputMint)
	}

	type quoteResult struct {
		pool      pkg.Pool
		outAmount math.Int
		err       error
	}

	resultChan := make(chan quoteResult, len(candidates))
	var wg sync.WaitGroup

	for _, pool := range candidates {
		wg.Add(1)
		go func(p pkg.Pool) {
			defer wg.Done()
			outAmount, err := p.QuoteExactInput(ctx, inputMint, amountIn)
			resultChan <- quoteResult{pool: p, outAmount: outAmount, err: err}
		}(pool)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var best pkg.Pool
	maxOut := math.ZeroInt()
	for result := range resultChan {
		if result.err != nil {
			r.logger.Debug("pool quote failed", "pool", result.pool.GetID(), "error", result.err)
			continue
		}
		if result.outAmount.GT(maxOut) {
			maxOut = result.outAmount
			best = result.pool
		}
	}

	if best == nil {
		return nil, math.ZeroInt(), fmt.Errorf("no route found for %s/%s", inputMint, outputMint)
	}
	return best, maxOut, nil
}

func (r *Router) poolsForPair(mintX, mintY string) []pkg.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []pkg.Pool
	for _, pool := range r.pools {
		a, b := pool.GetTokens()
		if (a == mintX && b == mintY) || (a == mintY && b == mintX) {
			matched = append(matched, pool)
		}
	}
	return matched
}
