package subscription

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"swaprouting/pkg"
)

// PoolStateUpdater is implemented by pools that can refresh themselves
// from raw account data.
type PoolStateUpdater interface {
	UpdateFromAccountData(accountID string, data []byte) error
}

// PoolCacheEntry is a cached pool with update metadata.
type PoolCacheEntry struct {
	Pool        pkg.Pool
	LastUpdate  time.Time
	LastSlot    uint64
	AccountData map[string][]byte // account address -> raw data
}

// PoolCache holds the live pool state maintained by subscriptions.
type PoolCache struct {
	logger *slog.Logger
	pools  map[string]*PoolCacheEntry
	mu     sync.RWMutex
}

func NewPoolCache(logger *slog.Logger) *PoolCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PoolCache{
		logger: logger.With("component", "pool-cache"),
		pools:  make(map[string]*PoolCacheEntry),
	}
}

// SetPool adds or refreshes a pool in the cache.
func (pc *PoolCache) SetPool(poolID string, pool pkg.Pool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if entry, exists := pc.pools[poolID]; exists {
		entry.Pool = pool
		entry.LastUpdate = time.Now()
		return
	}
	pc.pools[poolID] = &PoolCacheEntry{
		Pool:        pool,
		LastUpdate:  time.Now(),
		AccountData: make(map[string][]byte),
	}
}

// GetPool retrieves a pool from the cache.
func (pc *PoolCache) GetPool(poolID string) (pkg.Pool, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if entry, exists := pc.pools[poolID]; exists {
		return entry.Pool, true
	}
	return nil, false
}

// GetAllPools returns all cached pools.
func (pc *PoolCache) GetAllPools() []pkg.Pool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	pools := make([]pkg.Pool, 0, len(pc.pools))
	for _, entry := range pc.pools {
		pools = append(pools, entry.Pool)
	}
	return pools
}

// RemovePool drops a pool from the cache.
func (pc *PoolCache) RemovePool(poolID string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	delete(pc.pools, poolID)
}

// UpdatePoolAccount stores raw account data for a pool and, when the pool
// supports it, applies the update to the pool state.
func (pc *PoolCache) UpdatePoolAccount(poolID, accountID string, data []byte, slot uint64) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	entry, exists := pc.pools[poolID]
	if !exists {
		return fmt.Errorf("pool %s not found in cache", poolID)
	}

	entry.AccountData[accountID] = data
	entry.LastUpdate = time.Now()
	entry.LastSlot = slot

	updater, ok := entry.Pool.(PoolStateUpdater)
	if !ok {
		pc.logger.Debug("pool does not accept state updates", "pool", poolID)
		return nil
	}
	if err := updater.UpdateFromAccountData(accountID, data); err != nil {
		pc.logger.Warn("pool state update failed",
			"pool", poolID, "account", accountID, "error", err)
		return err
	}
	pc.logger.Debug("pool state updated", "pool", poolID, "account", accountID, "slot", slot)

	return nil
}

// GetPoolEntry returns the full cache entry for a pool.
func (pc *PoolCache) GetPoolEntry(poolID string) (*PoolCacheEntry, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	entry, exists := pc.pools[poolID]
	return entry, exists
}

// Size returns the number of cached pools.
func (pc *PoolCache) Size() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	return len(pc.pools)
}

// Clear drops all cached pools.
func (pc *PoolCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.pools = make(map[string]*PoolCacheEntry)
}

// GetStalePoolIDs returns pools that have not been updated within maxAge.
func (pc *PoolCache) GetStalePoolIDs(maxAge time.Duration) []string {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	now := time.Now()
	stalePools := make([]string, 0)

	for poolID, entry := range pc.pools {
		if now.Sub(entry.LastUpdate) > maxAge {
			stalePools = append(stalePools, poolID)
		}
	}

	return stalePools
}
