package referrer

import (
	"sync"

	"github.com/gagliardetto/solana-go"
)

// NoReferrer is the sentinel address that disables fee injection.
var NoReferrer = solana.PublicKey{}

// Store holds the active referrer configuration. The owner address is fixed
// at construction; every mutating call checks the caller against it before
// touching state. Initialized to (none, 0): fee injection disabled.
type Store struct {
	mu       sync.RWMutex
	owner    solana.PublicKey
	referrer solana.PublicKey
	feeBps   uint32
	events   *EventLog
}

// NewStore creates a configuration store owned by owner.
func NewStore(owner solana.PublicKey, events *EventLog) *Store {
	return &Store{
		owner:    owner,
		referrer: NoReferrer,
		events:   events,
	}
}

// Owner returns the owner address.
func (s *Store) Owner() solana.PublicKey {
	return s.owner
}

// SetReferrer sets the fee beneficiary. Owner-only. The zero address
// disables fee injection without touching the rate.
func (s *Store) SetReferrer(caller, referrer solana.PublicKey) error {
	if !caller.Equals(s.owner) {
		return ErrUnauthorized
	}

	s.mu.Lock()
	s.referrer = referrer
	s.mu.Unlock()

	s.events.EmitReferrerSet(referrer)
	return nil
}

// SetReferrerFee sets the fee rate in basis points. Owner-only. The bound
// is enforced on every write, never assumed from prior state.
func (s *Store) SetReferrerFee(caller solana.PublicKey, feeBps uint32) error {
	if !caller.Equals(s.owner) {
		return ErrUnauthorized
	}
	if feeBps > MaxFeeBps {
		return ErrInvalidFeeRate
	}

	s.mu.Lock()
	s.feeBps = feeBps
	s.mu.Unlock()

	s.events.EmitReferrerFeeSet(feeBps)
	return nil
}

// Config returns the current (referrer, feeBps). Callable by anyone.
func (s *Store) Config() (solana.PublicKey, uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.referrer, s.feeBps
}

// Active reports whether fee injection is enabled: a referrer is set and
// the rate is non-zero.
func (s *Store) Active() bool {
	referrer, feeBps := s.Config()
	return !referrer.Equals(NoReferrer) && feeBps > 0
}
