package imaging

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrNoForegroundRegion is returned when a mask yields no external contour.
	ErrNoForegroundRegion = errors.New("imaging: no foreground region")
	// ErrDegenerateMoment is returned when the selected contour encloses zero area.
	ErrDegenerateMoment = errors.New("imaging: degenerate moment (m00 == 0)")
)

// PreconditionError reports operands that cannot take part in an operation,
// most commonly images whose dimensions differ.
type PreconditionError struct {
	Op     string
	Want   image.Point
	Got    image.Point
	Reason string
}

func (e *PreconditionError) Error() string {
	if e.Want != e.Got {
		return fmt.Sprintf("imaging: %s: %s (want %dx%d, got %dx%d)", e.Op, e.Reason, e.Want.X, e.Want.Y, e.Got.X, e.Got.Y)
	}
	return fmt.Sprintf("imaging: %s: %s", e.Op, e.Reason)
}
