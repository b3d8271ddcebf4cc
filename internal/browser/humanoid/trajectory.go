// internal/browser/humanoid/trajectory.go
package humanoid

import (
	"math"
	"time"
)

// Waypoint is one leg of a drag: travel to Target through Steps interpolated
// positions, then wait PauseAfter.
type Waypoint struct {
	Phase      State         `json:"phase" yaml:"phase"`
	Target     Vector2D      `json:"target" yaml:"target"`
	Steps      int           `json:"steps" yaml:"steps"`
	PauseAfter time.Duration `json:"pause_after" yaml:"pause_after"`
}

// Trajectory is the ordered list of waypoints of one drag.
type Trajectory []Waypoint

// Final returns the last waypoint target, or false for an empty trajectory.
func (t Trajectory) Final() (Vector2D, bool) {
	if len(t) == 0 {
		return Vector2D{}, false
	}
	return t[len(t)-1].Target, true
}

// computeEaseInOutCubic calculates the value of a cubic easing function at time t.
// The function provides a smooth acceleration and deceleration profile.
func computeEaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// interpolate returns steps positions from start (exclusive) to end (inclusive)
// spaced by the easing curve. The last position is always exactly end.
func interpolate(start, end Vector2D, steps int) []Vector2D {
	if steps < 1 {
		steps = 1
	}
	path := make([]Vector2D, steps)
	for i := 1; i <= steps; i++ {
		path[i-1] = start.Lerp(end, computeEaseInOutCubic(float64(i)/float64(steps)))
	}
	path[steps-1] = end
	return path
}
