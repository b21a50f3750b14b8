package subscription

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"swaprouting/pkg"
)

// PoolUpdateHandler is called after a pool's state has been refreshed.
type PoolUpdateHandler func(poolID string, data []byte, slot uint64)

// AccountWatcher is implemented by pools that name the accounts keeping
// their state current.
type AccountWatcher interface {
	WatchAccounts() []string
}

// Manager keeps registered pools fresh through account subscriptions.
type Manager struct {
	wsClient      *WebSocketClient
	poolCache     *PoolCache
	logger        *slog.Logger
	subscriptions map[string]uint64 // account -> subscription ID
	handlers      map[string]PoolUpdateHandler
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewManager(ctx context.Context, wsURL string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	managerCtx, cancel := context.WithCancel(ctx)

	wsClient, err := NewWebSocketClient(managerCtx, wsURL, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create WebSocket client: %w", err)
	}

	return &Manager{
		wsClient:      wsClient,
		poolCache:     NewPoolCache(logger),
		logger:        logger.With("component", "subscription"),
		subscriptions: make(map[string]uint64),
		handlers:      make(map[string]PoolUpdateHandler),
		ctx:           managerCtx,
		cancel:        cancel,
	}, nil
}

// SubscribePool subscribes to every account the pool watches and caches
// the pool.
func (sm *Manager) SubscribePool(pool pkg.Pool) error {
	poolID := pool.GetID()

	sm.mu.RLock()
	_, exists := sm.subscriptions[poolID]
	sm.mu.RUnlock()
	if exists {
		return nil
	}

	accounts := []string{poolID}
	if watcher, ok := pool.(AccountWatcher); ok {
		accounts = watcher.WatchAccounts()
	}

	sm.logger.Info("subscribing pool", "pool", poolID, "accounts", len(accounts))

	for _, account := range accounts {
		handler := func(accountID string, data []byte, slot uint64) {
			sm.handleAccountUpdate(poolID, accountID, data, slot)
		}

		subID, err := sm.wsClient.SubscribeAccount(account, handler)
		if err != nil {
			sm.logger.Warn("account subscription failed",
				"pool", poolID, "account", account, "error", err)
			continue
		}

		sm.mu.Lock()
		sm.subscriptions[account] = subID
		sm.mu.Unlock()
	}

	sm.poolCache.SetPool(poolID, pool)

	return nil
}

// UnsubscribePool removes a pool and its account subscriptions.
func (sm *Manager) UnsubscribePool(poolID string) error {
	pool, ok := sm.poolCache.GetPool(poolID)
	if !ok {
		return fmt.Errorf("pool %s not subscribed", poolID)
	}

	accounts := []string{poolID}
	if watcher, ok := pool.(AccountWatcher); ok {
		accounts = watcher.WatchAccounts()
	}

	sm.mu.Lock()
	for _, account := range accounts {
		subID, exists := sm.subscriptions[account]
		if !exists {
			continue
		}
		if err := sm.wsClient.Unsubscribe(subID); err != nil {
			sm.logger.Warn("unsubscribe failed", "account", account, "error", err)
		}
		delete(sm.subscriptions, account)
	}
	sm.mu.Unlock()

	sm.poolCache.RemovePool(poolID)

	return nil
}

func (sm *Manager) handleAccountUpdate(poolID, accountID string, base64Data []byte, slot uint64) {
	data, err := base64.StdEncoding.DecodeString(string(base64Data))
	if err != nil {
		sm.logger.Warn("account data decode failed", "account", accountID, "error", err)
		return
	}

	if err := sm.poolCache.UpdatePoolAccount(poolID, accountID, data, slot); err != nil {
		return
	}

	sm.mu.RLock()
	handler, exists := sm.handlers[poolID]
	sm.mu.RUnlock()
	if exists {
		handler(poolID, data, slot)
	}
}

// RegisterHandler registers a callback fired after each update to a pool.
func (sm *Manager) RegisterHandler(poolID string, handler PoolUpdateHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.handlers[poolID] = handler
}

// GetPool returns a pool from the cache.
func (sm *Manager) GetPool(poolID string) (pkg.Pool, bool) {
	return sm.poolCache.GetPool(poolID)
}

// GetAllPools returns all cached pools.
func (sm *Manager) GetAllPools() []pkg.Pool {
	return sm.poolCache.GetAllPools()
}

// IsConnected reports whether the WebSocket connection is live.
func (sm *Manager) IsConnected() bool {
	return sm.wsClient.IsConnected()
}

// Close stops all subscriptions and the connection.
func (sm *Manager) Close() error {
	sm.cancel()

	for _, pool := range sm.poolCache.GetAllPools() {
		if err := sm.UnsubscribePool(pool.GetID()); err != nil {
			sm.logger.Warn("unsubscribe on close failed", "pool", pool.GetID(), "error", err)
		}
	}

	return sm.wsClient.Close()
}

// Stats returns subscription statistics for the status endpoint.
func (sm *Manager) Stats() map[string]interface{} {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return map[string]interface{}{
		"subscriptions": len(sm.subscriptions),
		"cachedPools":   sm.poolCache.Size(),
		"connected":     sm.wsClient.IsConnected(),
		"timestamp":     time.Now().Format(time.RFC3339),
	}
}
