// Package fsm holds the detection loop's pure state transition table.
package fsm

import "fmt"

type State string

type Event string

const (
	StateScanning State = "scanning"
	StateReported State = "reported"
)

const (
	EventAdmit Event = "admit"
	EventReset Event = "reset"
)

// Transition returns the state after applying event to current.
// Admitting from reported and resetting from scanning are self-loops.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateScanning:
		switch event {
		case EventAdmit:
			return StateReported, nil
		case EventReset:
			return StateScanning, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateReported:
		switch event {
		case EventAdmit:
			return StateReported, nil
		case EventReset:
			return StateScanning, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// FromLocked maps the lock flag onto its loop state.
func FromLocked(locked bool) State {
	if locked {
		return StateReported
	}
	return StateScanning
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
