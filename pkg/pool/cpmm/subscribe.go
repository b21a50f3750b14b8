package cpmm

import (
	"encoding/binary"
	"fmt"
)

// SPL token account layout: mint(32) + owner(32) + amount(8) + ...
const (
	tokenAccountAmountOffset = 64
	tokenAccountMinSize      = 72
)

// WatchAccounts returns the account addresses whose updates keep the pool
// state fresh: the pool account itself plus its two token vaults.
func (p *Pool) WatchAccounts() []string {
	accounts := []string{p.GetID()}
	if !p.TokenAccountA.IsZero() {
		accounts = append(accounts, p.TokenAccountA.String())
	}
	if !p.TokenAccountB.IsZero() {
		accounts = append(accounts, p.TokenAccountB.String())
	}
	return accounts
}

// UpdateFromAccountData applies a raw account update. Updates to the pool
// account re-decode the fee parameters; updates to either token vault move
// the matching reserve.
func (p *Pool) UpdateFromAccountData(accountID string, data []byte) error {
	switch accountID {
	case p.GetID():
		return p.Decode(data)
	case p.TokenAccountA.String():
		amount, err := tokenAccountAmount(data)
		if err != nil {
			return fmt.Errorf("vault A update: %w", err)
		}
		p.mu.Lock()
		p.reserveA = amount
		p.mu.Unlock()
		return nil
	case p.TokenAccountB.String():
		amount, err := tokenAccountAmount(data)
		if err != nil {
			return fmt.Errorf("vault B update: %w", err)
		}
		p.mu.Lock()
		p.reserveB = amount
		p.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("account %s does not belong to pool %s", accountID, p.GetID())
	}
}

func tokenAccountAmount(data []byte) (uint64, error) {
	if len(data) < tokenAccountMinSize {
		return 0, fmt.Errorf("data too short for token account: got %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[tokenAccountAmountOffset : tokenAccountAmountOffset+8]), nil
}
