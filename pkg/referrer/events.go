package referrer

import (
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
)

// Event is an entry in the append-only referrer event log. External
// consumers (indexers, the HTTP service) read these; nothing in the engine
// depends on them.
type Event interface {
	EventName() string
}

// ReferrerSet records a referrer address change.
type ReferrerSet struct {
	Referrer solana.PublicKey
	At       time.Time
}

func (ReferrerSet) EventName() string { return "ReferrerSet" }

// ReferrerFeeSet records a fee rate change.
type ReferrerFeeSet struct {
	FeeBps uint32
	At     time.Time
}

func (ReferrerFeeSet) EventName() string { return "ReferrerFeeSet" }

// ReferrerFeeAccrued records a ledger credit made during swap fee injection.
type ReferrerFeeAccrued struct {
	Referrer solana.PublicKey
	Mint     string
	Amount   math.Int
	At       time.Time
}

func (ReferrerFeeAccrued) EventName() string { return "ReferrerFeeAccrued" }

// ReferrerFeeCollected records a successful withdrawal of accumulated fees.
type ReferrerFeeCollected struct {
	Referrer solana.PublicKey
	Mint     string
	Amount   math.Int
	At       time.Time
}

func (ReferrerFeeCollected) EventName() string { return "ReferrerFeeCollected" }

// EventLog is an append-only event log with optional subscriber callbacks.
// Handlers run synchronously on the emitting goroutine.
type EventLog struct {
	mu       sync.RWMutex
	clock    clockwork.Clock
	entries  []Event
	handlers []func(Event)
}

// NewEventLog creates an event log. A nil clock defaults to the wall clock.
func NewEventLog(clock clockwork.Clock) *EventLog {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EventLog{clock: clock}
}

// Subscribe registers a handler invoked for every subsequent event.
func (l *EventLog) Subscribe(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, fn)
}

// Entries returns a copy of all logged events in emission order.
func (l *EventLog) Entries() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Now returns the log's current timestamp source.
func (l *EventLog) Now() time.Time {
	return l.clock.Now()
}

func (l *EventLog) emit(ev Event) {
	l.mu.Lock()
	l.entries = append(l.entries, ev)
	handlers := make([]func(Event), len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// EmitReferrerSet appends a ReferrerSet event.
func (l *EventLog) EmitReferrerSet(referrer solana.PublicKey) {
	l.emit(ReferrerSet{Referrer: referrer, At: l.clock.Now()})
}

// EmitReferrerFeeSet appends a ReferrerFeeSet event.
func (l *EventLog) EmitReferrerFeeSet(feeBps uint32) {
	l.emit(ReferrerFeeSet{FeeBps: feeBps, At: l.clock.Now()})
}

// EmitFeeAccrued appends a ReferrerFeeAccrued event.
func (l *EventLog) EmitFeeAccrued(referrer solana.PublicKey, mint string, amount math.Int) {
	l.emit(ReferrerFeeAccrued{Referrer: referrer, Mint: mint, Amount: amount, At: l.clock.Now()})
}

// EmitFeeCollected appends a ReferrerFeeCollected event.
func (l *EventLog) EmitFeeCollected(referrer solana.PublicKey, mint string, amount math.Int) {
	l.emit(ReferrerFeeCollected{Referrer: referrer, Mint: mint, Amount: amount, At: l.clock.Now()})
}
