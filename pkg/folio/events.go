package folio

import "github.com/bft-labs/folio/internal/app"

// State is the lifecycle state of a Folio instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return app.State(s).String()
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives lifecycle events. Calls are synchronous.
type EventHandler interface {
	OnStateChange(e StateChangeEvent)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(StateChangeEvent)

// OnStateChange calls f(e).
func (f EventHandlerFunc) OnStateChange(e StateChangeEvent) { f(e) }

type stateObserver struct {
	handler EventHandler
}

func (o stateObserver) OnStateChange(previous, current app.State, reason string) {
	if o.handler == nil {
		return
	}
	o.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
