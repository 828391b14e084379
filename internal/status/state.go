// Package status tracks the daemon's session state.
package status

import (
	"fmt"
	"slices"
	gosync "sync"

	"github.com/matheus3301/soc/internal/bus"
)

// State represents a daemon runtime state.
type State string

const (
	Booting      State = "BOOTING"
	AuthRequired State = "AUTH_REQUIRED"
	Syncing      State = "SYNCING"
	Ready        State = "READY"
	Degraded     State = "DEGRADED"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions. Any state but ERROR
// can fall back to AUTH_REQUIRED when the token is dropped.
var validTransitions = map[State][]State{
	Booting:      {AuthRequired, Syncing, Error},
	AuthRequired: {Syncing, Error},
	Syncing:      {Ready, Degraded, AuthRequired, Error},
	Ready:        {Degraded, AuthRequired, Error},
	Degraded:     {Ready, AuthRequired, Error},
	Error:        {Booting},
}

// Machine tracks and enforces daemon runtime state transitions.
type Machine struct {
	mu      gosync.RWMutex
	current State
	detail  string
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Detail returns the note attached by the last transition, typically the
// error that caused a DEGRADED or ERROR state.
func (m *Machine) Detail() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.detail
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	return m.TransitionWith(to, "")
}

// TransitionWith is Transition with a note kept until the next transition.
func (m *Machine) TransitionWith(to State, detail string) error {
	m.mu.Lock()
	if !slices.Contains(validTransitions[m.current], to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	from := m.current
	m.current = to
	m.detail = detail
	m.mu.Unlock()

	m.bus.Emit(bus.SessionStatus, StatusChange{From: from, To: to, Detail: detail})
	return nil
}

// Advance moves to the state only if that is a legal step from the
// current one, and reports whether it did. Staying put is not a step.
func (m *Machine) Advance(to State, detail string) bool {
	return m.TransitionWith(to, detail) == nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From   State
	To     State
	Detail string
}
