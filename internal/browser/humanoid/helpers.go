// internal/browser/humanoid/helpers.go
package humanoid

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xkilldash9x/slidejig/api/schemas"
)

// Box is an axis aligned rectangle in viewport coordinates.
type Box struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Center returns the midpoint of the box.
func (b Box) Center() Vector2D {
	return Vector2D{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// BoxFromGeometry converts element geometry into its bounding box.
func BoxFromGeometry(geo *schemas.ElementGeometry) (Box, error) {
	if geo == nil || len(geo.Vertices) < 8 {
		return Box{}, fmt.Errorf("humanoid: invalid element geometry")
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(geo.Vertices); i += 2 {
		x, y := geo.Vertices[i], geo.Vertices[i+1]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	b := Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	if b.Empty() {
		return Box{}, fmt.Errorf("humanoid: element is not interactable (zero size)")
	}
	return b, nil
}

// Sleep waits d or until ctx is done. Drivers without an in-browser sleep use it.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
