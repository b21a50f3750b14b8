package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swaprouting/pkg/config"
	"swaprouting/pkg/protocol"
	"swaprouting/pkg/router"
	"swaprouting/pkg/sol"
	"swaprouting/pkg/subscription"
	"swaprouting/pkg/token"
)

var (
	port         = flag.Int("port", 8080, "HTTP server port")
	rpcEndpoints = flag.String("rpc", "", "Comma-separated Solana RPC endpoints for pool discovery (optional)")
	wsEndpoint   = flag.String("ws", "", "Solana WebSocket endpoint for pool state subscriptions (optional)")
	rateLimit    = flag.Int("ratelimit", 20, "RPC requests per second per endpoint")
	watchPairs   = flag.String("pairs", "", "Comma-separated mintA/mintB pairs to discover pools for")
	debug        = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	owner, err := config.GetAddress("ROUTER_OWNER")
	if err != nil {
		return err
	}
	feeVault, err := config.GetAddress("FEE_VAULT")
	if err != nil {
		return err
	}

	bank := token.NewBank()
	registry := prometheus.NewRegistry()

	r, err := router.NewRouter(&router.Config{
		Owner:         owner,
		FeeVault:      feeVault,
		Bank:          bank,
		Logger:        logger,
		PrometheusReg: registry,
	})
	if err != nil {
		return err
	}

	// Seed the referrer configuration from the environment when present.
	if initialReferrer, err := config.GetAddress("REFERRER_ADDRESS"); err != nil {
		return err
	} else if !initialReferrer.IsZero() {
		if err := r.SetReferrer(owner, initialReferrer); err != nil {
			return fmt.Errorf("seeding referrer: %w", err)
		}
	}
	if feeBps, err := config.GetReferrerFeeBps(); err != nil {
		return err
	} else if feeBps > 0 {
		if err := r.SetReferrerFee(owner, feeBps); err != nil {
			return fmt.Errorf("seeding referrer fee: %w", err)
		}
	}

	// Optional on-chain pool discovery.
	endpoints := config.GetRPCEndpoints()
	if *rpcEndpoints != "" {
		endpoints = splitTrimmed(*rpcEndpoints)
	}
	if len(endpoints) > 0 {
		rpcPool, err := sol.NewRPCPool(ctx, endpoints, "", *rateLimit)
		if err != nil {
			return fmt.Errorf("creating rpc pool: %w", err)
		}
		r.RegisterProtocol(protocol.NewCpmm(rpcPool.GetClient()))

		for _, pair := range splitTrimmed(*watchPairs) {
			mints := strings.SplitN(pair, "/", 2)
			if len(mints) != 2 {
				logger.Warn("skipping malformed pair", "pair", pair)
				continue
			}
			if err := r.QueryAllPools(ctx, mints[0], mints[1]); err != nil {
				logger.Warn("pool discovery failed", "pair", pair, "error", err)
			}
		}
		logger.Info("pool discovery done", "pools", len(r.Pools()))
	}

	// Optional live pool state subscriptions.
	var manager *subscription.Manager
	if *wsEndpoint != "" {
		manager, err = subscription.NewManager(ctx, *wsEndpoint, logger)
		if err != nil {
			return fmt.Errorf("creating subscription manager: %w", err)
		}
		defer manager.Close()
		for _, pool := range r.Pools() {
			if err := manager.SubscribePool(pool); err != nil {
				logger.Warn("pool subscription failed", "pool", pool.GetID(), "error", err)
			}
		}
	}

	srv := &server{
		router:    r,
		bank:      bank,
		manager:   manager,
		logger:    logger,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	srv.routes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: corsMiddleware(mux),
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("listening", "port", *port, "owner", owner, "feeVault", feeVault)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func splitTrimmed(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
