package engine

import "fmt"

// State is the outcome of one reconcile call.
type State int

const (
	// StateUnresolved means the entity could not be processed this pass.
	StateUnresolved State = iota

	// StateSynced means the ledger already matches the catalog.
	StateSynced

	// StateResolved means the entity had no id but one was found on the
	// ledger. The catalog should be updated.
	StateResolved

	// StatePendingCreateFound means a matching create was approved.
	StatePendingCreateFound

	// StateCreateSubmitted means a create operation is in the proposal
	// buffer.
	StateCreateSubmitted

	// StatePendingUpdateFound means a matching update was approved.
	StatePendingUpdateFound

	// StateUpdateSubmitted means an update operation is in the proposal
	// buffer.
	StateUpdateSubmitted
)

var stateNames = [...]string{
	StateUnresolved:         "UNRESOLVED",
	StateSynced:             "SYNCED",
	StateResolved:           "RESOLVED",
	StatePendingCreateFound: "PENDING_CREATE_FOUND",
	StateCreateSubmitted:    "CREATE_SUBMITTED",
	StatePendingUpdateFound: "PENDING_UPDATE_FOUND",
	StateUpdateSubmitted:    "UPDATE_SUBMITTED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// MarshalText renders the state name in reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	parsed, ok := ParseState(string(text))
	if !ok {
		return fmt.Errorf("unknown state %q", text)
	}
	*s = parsed
	return nil
}

// ParseState returns the state named name.
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return State(s), true
		}
	}
	return StateUnresolved, false
}

// Changed reports whether the state queued or approved anything.
func (s State) Changed() bool {
	switch s {
	case StatePendingCreateFound, StateCreateSubmitted, StatePendingUpdateFound, StateUpdateSubmitted:
		return true
	}
	return false
}
