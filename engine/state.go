package engine

import (
	"time"

	"github.com/rustyeddy/atlas/broker"
)

// State is everything the scheduler carries between symbols and cycles.
// It lives in memory only and starts empty on every process start. Only
// the scheduler goroutine touches it.
type State struct {
	lastEntry map[string]time.Time
	account   broker.AccountSnapshot
	hasAcct   bool
}

func NewState() *State {
	return &State{lastEntry: map[string]time.Time{}}
}

// LastEntry returns when symbol last had a bracket fully accepted.
func (s *State) LastEntry(symbol string) (time.Time, bool) {
	t, ok := s.lastEntry[symbol]
	return t, ok
}

// RecordEntry starts the cooldown for symbol at t.
func (s *State) RecordEntry(symbol string, t time.Time) {
	s.lastEntry[symbol] = t.UTC()
}

// CoolingDown reports whether symbol is still inside its cooldown at now.
// The window is half open: exactly cooldown after the entry it is over.
func (s *State) CoolingDown(symbol string, now time.Time, cooldown time.Duration) bool {
	last, ok := s.lastEntry[symbol]
	return ok && now.Sub(last) < cooldown
}

func (s *State) SetAccount(a broker.AccountSnapshot) {
	s.account = a
	s.hasAcct = true
}

// Account returns the most recent account snapshot, if any.
func (s *State) Account() (broker.AccountSnapshot, bool) {
	return s.account, s.hasAcct
}
