// internal/browser/humanoid/state.go
package humanoid

import "fmt"

// State is the phase of a DragController.
type State int

const (
	StateIdle State = iota
	// StateEngaged: pointer over the handle with the button held.
	StateEngaged
	// StateAdvancing: handle moved by the planned offset.
	StateAdvancing
	// StateCorrected: handle moved to the position derived from the re-measured piece.
	StateCorrected
	// StateReleased is terminal. Whether the widget accepted the drop is judged elsewhere.
	StateReleased
	// StateAborted is terminal. The button has been released as cleanup.
	StateAborted
)

var stateNames = [...]string{"Idle", "Engaged", "Advancing", "Corrected", "Released", "Aborted"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateReleased || s == StateAborted
}

// MarshalText lets states appear by name in json and yaml.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
