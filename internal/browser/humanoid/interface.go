// internal/browser/humanoid/interface.go
package humanoid

import (
	"context"
	"time"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// Executor defines the low-level browser primitives the pointer is built on.
type Executor interface {
	Sleep(ctx context.Context, d time.Duration) error
	DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error
}

// Pointer is the drag surface used by DragController. Coordinates are CSS pixels
// relative to the viewport.
type Pointer interface {
	// MoveTo travels to (x, y) through steps interpolated positions.
	MoveTo(ctx context.Context, x, y float64, steps int) error
	Press(ctx context.Context) error
	Release(ctx context.Context) error
}

// PieceMeasurer re-reads the widget and returns the current centroid of the
// movable piece in piece-image coordinates.
type PieceMeasurer interface {
	MeasurePiece(ctx context.Context) (imaging.Point, error)
}

// PieceMeasurerFunc adapts a function to PieceMeasurer.
type PieceMeasurerFunc func(ctx context.Context) (imaging.Point, error)

func (f PieceMeasurerFunc) MeasurePiece(ctx context.Context) (imaging.Point, error) {
	return f(ctx)
}
