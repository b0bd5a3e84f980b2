// Package fsm holds the wake-word session transition table.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle  State = "idle"
	StateArmed State = "armed"
)

const (
	// EventWake fires when the wake word is heard while idle.
	EventWake Event = "wake"
	// EventArm opens a command window without the wake word.
	EventArm Event = "arm"
	// EventDispatch consumes an in-window utterance as a command.
	EventDispatch Event = "dispatch"
	// EventExpire consumes an utterance that arrived after the window closed.
	EventExpire Event = "expire"
	EventDisarm Event = "disarm"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventWake, EventArm:
			return StateArmed, nil
		case EventDisarm:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateArmed:
		switch event {
		case EventDispatch, EventExpire, EventDisarm:
			return StateIdle, nil
		case EventArm:
			return StateArmed, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
