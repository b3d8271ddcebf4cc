// internal/browser/humanoid/drag.go
package humanoid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// ErrControllerUsed is returned when Execute is called on a controller that
// already left Idle. A controller serves exactly one attempt.
var ErrControllerUsed = errors.New("drag: controller already used")

// DragResult reports the geometry of an executed drag.
type DragResult struct {
	Handle   Vector2D      `json:"handle" yaml:"handle"`
	Slot     imaging.Point `json:"slot" yaml:"slot"`
	Piece    imaging.Point `json:"piece" yaml:"piece"`
	PlannedX float64       `json:"planned_x" yaml:"planned_x"`
	FinalX   float64       `json:"final_x" yaml:"final_x"`
	FinalY   float64       `json:"final_y" yaml:"final_y"`
	State    State         `json:"state" yaml:"state"`

	// PieceMeasured is set once the correction measurement succeeded, even if
	// the drag aborted afterwards. Piece is meaningless without it.
	PieceMeasured bool `json:"piece_measured" yaml:"piece_measured"`
}

// DragController drives the handle into the slot in two legs. The first leg
// moves by the slot offset. After a settle pause the piece is measured again and
// the second leg removes the remaining error before the button is released.
type DragController struct {
	mu       sync.Mutex
	pointer  Pointer
	measurer PieceMeasurer
	cfg      Config
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	state      State
	trajectory Trajectory
}

// DragOption customizes a DragController.
type DragOption func(*DragController)

// WithSleeper replaces the timer used for the settle pause, typically with an
// Executor's Sleep.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) DragOption {
	return func(c *DragController) { c.sleep = sleep }
}

func NewDragController(pointer Pointer, measurer PieceMeasurer, cfg Config, logger *zap.Logger, opts ...DragOption) *DragController {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &DragController{
		pointer:  pointer,
		measurer: measurer,
		cfg:      cfg.normalized(),
		logger:   logger.Named("drag"),
		sleep:    Sleep,
		state:    StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current phase.
func (c *DragController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Trajectory returns a copy of the waypoints executed so far.
func (c *DragController) Trajectory() Trajectory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(Trajectory(nil), c.trajectory...)
}

// Plan returns the waypoints known before the piece is re-measured: engaging the
// handle and advancing it by the slot offset. The corrected leg is appended by
// Execute.
func (c *DragController) Plan(handle Box, slot imaging.Point) Trajectory {
	center := handle.Center()
	return Trajectory{
		{Phase: StateEngaged, Target: center, Steps: c.cfg.Steps},
		{
			Phase:      StateAdvancing,
			Target:     Vector2D{X: center.X + float64(slot.X), Y: center.Y},
			Steps:      c.cfg.Steps,
			PauseAfter: c.cfg.SettlePause,
		},
	}
}

// Execute runs the full drag. Any failure after the button is pressed releases
// it and leaves the controller in StateAborted.
func (c *DragController) Execute(ctx context.Context, handle Box, slot imaging.Point) (*DragResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return nil, ErrControllerUsed
	}
	if handle.Empty() {
		c.state = StateAborted
		return nil, fmt.Errorf("drag: handle box %+v has no area", handle)
	}

	plan := c.Plan(handle, slot)
	res := &DragResult{Handle: plan[0].Target, Slot: slot, PlannedX: plan[1].Target.X}
	logger := c.logger.With(zap.Stringer("slot", slot), zap.Float64("handle_x", res.Handle.X))

	// Idle -> Engaged
	engage := plan[0]
	if err := c.pointer.MoveTo(ctx, engage.Target.X, engage.Target.Y, engage.Steps); err != nil {
		return c.abort(res, fmt.Errorf("drag: move to handle: %w", err))
	}
	if err := c.pointer.Press(ctx); err != nil {
		return c.abort(res, fmt.Errorf("drag: press: %w", err))
	}
	c.advance(engage)

	// Engaged -> Advancing
	adv := plan[1]
	if err := c.pointer.MoveTo(ctx, adv.Target.X, adv.Target.Y, adv.Steps); err != nil {
		return c.abort(res, fmt.Errorf("drag: advance: %w", err))
	}
	c.advance(adv)
	logger.Debug("Advanced handle", zap.Float64("planned_x", res.PlannedX))

	// Advancing -> Corrected
	if err := c.sleep(ctx, adv.PauseAfter); err != nil {
		return c.abort(res, fmt.Errorf("drag: settle: %w", err))
	}
	piece, err := c.measurer.MeasurePiece(ctx)
	if err != nil {
		return c.abort(res, fmt.Errorf("drag: correction: %w", err))
	}
	res.Piece, res.PieceMeasured = piece, true
	res.FinalX = res.PlannedX + float64(slot.X) - float64(piece.X)
	res.FinalY = handle.Y + handle.Height*c.cfg.VerticalBias

	corr := Waypoint{Phase: StateCorrected, Target: Vector2D{X: res.FinalX, Y: res.FinalY}, Steps: c.cfg.Steps}
	if err := c.pointer.MoveTo(ctx, corr.Target.X, corr.Target.Y, corr.Steps); err != nil {
		return c.abort(res, fmt.Errorf("drag: corrected move: %w", err))
	}
	c.advance(corr)
	logger.Debug("Corrected handle",
		zap.Stringer("piece", piece),
		zap.Float64("final_x", res.FinalX),
		zap.Float64("final_y", res.FinalY))

	// Corrected -> Released
	if err := c.pointer.Release(ctx); err != nil {
		return c.abort(res, fmt.Errorf("drag: release: %w", err))
	}
	c.state = StateReleased
	res.State = c.state
	return res, nil
}

// advance records a completed waypoint. The caller holds c.mu.
func (c *DragController) advance(w Waypoint) {
	c.trajectory = append(c.trajectory, w)
	c.state = w.Phase
}

// abort releases the button on a fresh context, since ctx may already be
// canceled, and moves to StateAborted. The caller holds c.mu.
func (c *DragController) abort(res *DragResult, cause error) (*DragResult, error) {
	from := c.state
	cleanupCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ReleaseTimeout)
	defer cancel()
	if err := c.pointer.Release(cleanupCtx); err != nil {
		c.logger.Warn("Cleanup release failed", zap.Error(err))
	}
	c.state = StateAborted
	res.State = c.state
	c.logger.Warn("Drag aborted", zap.Stringer("from", from), zap.Error(cause))
	return res, cause
}
