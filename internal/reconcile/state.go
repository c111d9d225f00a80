package reconcile

import "fmt"

// State is a step of one reconciliation cycle.
type State uint8

const (
	Idle State = iota
	ScopeResolved
	OracleCalled
	Spliced
	CursorRestored
	SideEffectsArmed
)

var stateNames = [...]string{
	Idle:             "idle",
	ScopeResolved:    "scope-resolved",
	OracleCalled:     "oracle-called",
	Spliced:          "spliced",
	CursorRestored:   "cursor-restored",
	SideEffectsArmed: "side-effects-armed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Entry is the state of the guard in front of the engine.
type Entry uint8

const (
	// Ready lets qualifying input start a cycle.
	Ready Entry = iota
	// Composing holds every cycle until the IME composition ends.
	Composing
	// Replaying swallows the next input event, which echoes a mutation the
	// engine made itself.
	Replaying
)

var entryNames = [...]string{Ready: "ready", Composing: "composing", Replaying: "replaying"}

func (e Entry) String() string {
	if int(e) < len(entryNames) {
		return entryNames[e]
	}
	return fmt.Sprintf("Entry(%d)", e)
}

// Observer is told about every state a cycle passes through.
type Observer func(State)
