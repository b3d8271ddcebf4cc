// internal/imaging/diff.go
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/orisano/pixelmatch"
)

// DiffOptions configures the perceptual comparison.
type DiffOptions struct {
	// Threshold in [0, 1]; smaller values make the comparison more sensitive.
	Threshold float64
	// IncludeAntiAliasing counts pixels that look anti-aliased as differences.
	IncludeAntiAliasing bool
	// DiffColor is written for differing pixels.
	DiffColor [3]byte
	// AAColor is written for anti-aliased pixels that are not counted.
	AAColor [3]byte
}

// DefaultDiffOptions returns threshold 0.2 with anti-aliased pixels counted.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		Threshold:           0.2,
		IncludeAntiAliasing: true,
		DiffColor:           [3]byte{255, 255, 255},
		AAColor:             [3]byte{0, 0, 0},
	}
}

// pixelmatch paints unchanged pixels as gray; with alpha 0 they come out white.
// Saturated markers can therefore never collide with an unchanged pixel.
var (
	diffMarker = color.RGBA{R: 255, A: 255}
	aaMarker   = color.RGBA{G: 255, A: 255}
)

// DiffEngine compares two images in YIQ space and renders the result as an RGBA
// image where unchanged pixels are black and changed pixels carry DiffColor.
type DiffEngine struct {
	opts  DiffOptions
	match []pixelmatch.MatchOption
}

// NewDiffEngine builds an engine. A threshold outside [0, 1] is clamped.
func NewDiffEngine(opts DiffOptions) *DiffEngine {
	opts.Threshold = math.Max(0, math.Min(1, opts.Threshold))
	match := []pixelmatch.MatchOption{
		pixelmatch.Threshold(opts.Threshold),
		pixelmatch.Alpha(0),
		pixelmatch.DiffColor(diffMarker),
		pixelmatch.AntiAliasedColor(aaMarker),
	}
	if opts.IncludeAntiAliasing {
		match = append(match, pixelmatch.IncludeAntiAlias)
	}
	return &DiffEngine{opts: opts, match: match}
}

// Options returns the effective options.
func (e *DiffEngine) Options() DiffOptions { return e.opts }

// Diff compares reference against candidate and returns the diff image together
// with the number of differing pixels.
func (e *DiffEngine) Diff(reference, candidate *Image) (*Image, int, error) {
	if err := checkSameSize("diff", reference, candidate); err != nil {
		return nil, 0, err
	}

	var rendered image.Image
	opts := append(e.match[:len(e.match):len(e.match)], pixelmatch.WriteTo(&rendered))
	count, err := pixelmatch.MatchPixel(reference.ToStd(), candidate.ToStd(), opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("imaging: diff: %w", err)
	}

	out := NewImage(reference.Width, reference.Height, 4)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	// Identical inputs take a fast path that leaves rendered unset.
	if rendered == nil {
		return out, count, nil
	}

	src := FromStd(rendered)
	for p := 0; p < len(src.Pix); p += 4 {
		switch {
		case src.Pix[p] == diffMarker.R && src.Pix[p+1] == diffMarker.G && src.Pix[p+2] == diffMarker.B:
			copy(out.Pix[p:p+3], e.opts.DiffColor[:])
		case src.Pix[p] == aaMarker.R && src.Pix[p+1] == aaMarker.G && src.Pix[p+2] == aaMarker.B:
			copy(out.Pix[p:p+3], e.opts.AAColor[:])
		}
	}
	return out, count, nil
}
