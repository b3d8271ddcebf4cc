// internal/imaging/ops.go
package imaging

import (
	"fmt"
	"image"
	"math"
	"sort"
	"sync"
)

// ThresholdMode selects how Threshold maps values above the cutoff.
type ThresholdMode int

const (
	// ThresholdBinary maps value > cutoff to 255 and everything else to 0.
	ThresholdBinary ThresholdMode = iota
	// ThresholdBinaryInv maps value > cutoff to 0 and everything else to 255.
	ThresholdBinaryInv
)

// Kernel is a rectangular all-ones structuring element.
type Kernel struct {
	Size   image.Point
	Anchor image.Point
}

// RectKernel returns a w x h all-ones kernel anchored at its center.
func RectKernel(w, h int) Kernel {
	return Kernel{Size: image.Pt(w, h), Anchor: image.Pt(w/2, h/2)}
}

// Contour is the ordered boundary of one connected foreground region.
type Contour []Point

// Bounds returns the smallest rectangle containing every contour point.
func (c Contour) Bounds() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(c[0].X, c[0].Y, c[0].X+1, c[0].Y+1)
	for _, p := range c[1:] {
		r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
	}
	return r
}

// Moments holds the spatial moments used for centroid computation.
type Moments struct {
	M00 float64 `json:"m00" yaml:"m00"`
	M10 float64 `json:"m10" yaml:"m10"`
	M01 float64 `json:"m01" yaml:"m01"`
}

// Centroid returns (floor(m10/m00), floor(m01/m00)). A zero area is reported as
// ErrDegenerateMoment rather than a NaN or infinite coordinate.
func (m Moments) Centroid() (Point, error) {
	if m.M00 == 0 {
		return Point{}, ErrDegenerateMoment
	}
	return Point{
		X: int(math.Floor(m.M10 / m.M00)),
		Y: int(math.Floor(m.M01 / m.M00)),
	}, nil
}

// ImageOps is the vision capability handed to the pipeline stages. Implementations
// never mutate their inputs.
type ImageOps interface {
	// Grayscale converts to a single intensity channel. Single channel input is copied.
	Grayscale(src *Image) (*Image, error)
	// Threshold binarizes every channel independently.
	Threshold(src *Image, cutoff uint8, mode ThresholdMode) (*Image, error)
	// Erode replaces each value with the minimum over the kernel neighborhood.
	Erode(src *Image, k Kernel) (*Image, error)
	// Dilate replaces each value with the maximum over the kernel neighborhood.
	Dilate(src *Image, k Kernel) (*Image, error)
	// FindExternalContours returns the outer borders of non-zero regions of a
	// single channel mask, in extraction order.
	FindExternalContours(mask *Image) ([]Contour, error)
	// ContourMoments computes area and first moments of the polygon described by c.
	ContourMoments(c Contour) Moments
}

var (
	backendsMu sync.RWMutex
	backends   = map[string]func() ImageOps{}
)

// registerBackend makes an ImageOps constructor available to NewOps.
func registerBackend(name string, ctor func() ImageOps) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = ctor
}

// NewOps constructs the named backend. "native" is always available; other
// backends depend on build tags.
func NewOps(name string) (ImageOps, error) {
	if name == "" {
		name = BackendNative
	}
	backendsMu.RLock()
	ctor, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("imaging: unknown backend %q (available: %v)", name, Backends())
	}
	return ctor(), nil
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
