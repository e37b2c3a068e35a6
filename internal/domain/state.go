package domain

import "fmt"

// State is a step of the rebooking state machine.
type State int

// States in strict order. Each state is a precondition for the next one.
const (
	StateInit State = iota
	StateLoggedIn
	StateSearched
	StateFlightSelected
	StateFareSelected
	StatePriceValidated
	StatePassengersFilled
	StateSubmitted
	StateConfirmed
	StateFailed
)

var stateNames = map[State]string{
	StateInit:             "init",
	StateLoggedIn:         "logged_in",
	StateSearched:         "searched",
	StateFlightSelected:   "flight_selected",
	StateFareSelected:     "fare_selected",
	StatePriceValidated:   "price_validated",
	StatePassengersFilled: "passengers_filled",
	StateSubmitted:        "submitted",
	StateConfirmed:        "confirmed",
	StateFailed:           "failed",
}

// String returns the snake_case state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText lets State render as its name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name, so published results can be read back.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// IsTerminal reports whether no further transition is allowed.
func (s State) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// Next returns the only state reachable on success.
func (s State) Next() (State, bool) {
	if s.IsTerminal() {
		return s, false
	}
	return s + 1, true
}

// StateMachine tracks the progress of one run.
// It is not safe for concurrent use; a run is strictly sequential.
type StateMachine struct {
	current State
	history []State
}

// NewStateMachine returns a machine in StateInit.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateInit,
		history: []State{StateInit},
	}
}

// Current returns the current state.
func (m *StateMachine) Current() State {
	return m.current
}

// History returns every state visited, in order.
func (m *StateMachine) History() []State {
	out := make([]State, len(m.history))
	copy(out, m.history)
	return out
}

// Advance moves to the given state. Only the immediate successor is accepted.
func (m *StateMachine) Advance(to State) error {
	next, ok := m.current.Next()
	if !ok || to != next || to == StateFailed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, to)
	}
	m.current = to
	m.history = append(m.history, to)
	return nil
}

// Fail moves to StateFailed from any non-terminal state and returns the state it failed in.
func (m *StateMachine) Fail() (State, error) {
	if m.current.IsTerminal() {
		return m.current, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, StateFailed)
	}
	from := m.current
	m.current = StateFailed
	m.history = append(m.history, StateFailed)
	return from, nil
}
