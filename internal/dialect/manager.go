package dialect

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned by BeginParse when no candidate dialect permits
// every construct rejected so far.
var ErrExhausted = errors.New("no dialect left to try")

// Session is the parsing state a Manager talks to.
type Session interface {
	SetDialect(d *Dialect)
	// Rejected reports the feature that ended the last attempt, if any.
	Rejected() (Feature, bool)
}

// Manager selects the active dialect for each parse attempt. It only moves
// forward through its candidates, so negotiation always converges.
type Manager struct {
	candidates []*Dialect
	pinned     bool
	idx        int
	rejected   map[Feature]bool
	attempts   int
}

// NewManager negotiates over candidates in order.
func NewManager(candidates ...*Dialect) *Manager {
	if len(candidates) == 0 {
		candidates = Defaults()
	}
	return &Manager{candidates: candidates, rejected: map[Feature]bool{}}
}

// NewPinnedManager always uses d.
func NewPinnedManager(d *Dialect) *Manager {
	return &Manager{candidates: []*Dialect{d}, pinned: true, rejected: map[Feature]bool{}}
}

// Pinned reports whether the dialect was fixed by the caller.
func (m *Manager) Pinned() bool {
	return m.pinned
}

// Candidates returns the number of dialects the manager may try.
func (m *Manager) Candidates() int {
	return len(m.candidates)
}

// Current returns the dialect chosen by the last BeginParse.
func (m *Manager) Current() *Dialect {
	if m.idx >= len(m.candidates) {
		return nil
	}
	return m.candidates[m.idx]
}

// BeginParse installs the first dialect, from the current position onward,
// that permits every feature rejected in earlier attempts.
func (m *Manager) BeginParse(s Session) error {
	m.attempts++
	if m.pinned {
		s.SetDialect(m.candidates[0])
		return nil
	}
	for ; m.idx < len(m.candidates); m.idx++ {
		if m.permitsRejected(m.candidates[m.idx]) {
			s.SetDialect(m.candidates[m.idx])
			return nil
		}
	}
	return fmt.Errorf("%w (attempt %d)", ErrExhausted, m.attempts)
}

// EndParse records the feature that caused a rewind, if there was one.
func (m *Manager) EndParse(s Session) {
	if f, ok := s.Rejected(); ok {
		m.rejected[f] = true
	}
}

func (m *Manager) permitsRejected(d *Dialect) bool {
	for f := range m.rejected {
		if !d.Allows(f) {
			return false
		}
	}
	return true
}
