// internal/imaging/locator.go
package imaging

import "fmt"

// Location is the outcome of locating the primary region of a mask.
type Location struct {
	Centroid Point
	Contour  Contour
	Moments  Moments
	// ContourCount is the number of external contours that were found.
	ContourCount int
}

// ContourLocator finds the centroid of the first external contour of a mask.
// Index 0 is always used, even when several regions are present, so noisy
// masks produce the same answer every run.
type ContourLocator struct {
	ops ImageOps
}

func NewContourLocator(ops ImageOps) *ContourLocator {
	return &ContourLocator{ops: ops}
}

// Locate returns ErrNoForegroundRegion for an empty mask and
// ErrDegenerateMoment when the selected contour has no area.
func (l *ContourLocator) Locate(mask *Image) (*Location, error) {
	contours, err := l.ops.FindExternalContours(mask)
	if err != nil {
		return nil, fmt.Errorf("locate: %w", err)
	}
	if len(contours) == 0 {
		return nil, ErrNoForegroundRegion
	}

	primary := contours[0]
	m := l.ops.ContourMoments(primary)
	c, err := m.Centroid()
	if err != nil {
		return nil, fmt.Errorf("locate: contour 0 of %d with %d points: %w", len(contours), len(primary), err)
	}
	return &Location{
		Centroid:     c,
		Contour:      primary,
		Moments:      m,
		ContourCount: len(contours),
	}, nil
}
