// internal/imaging/mask.go
package imaging

import "fmt"

// Policy selects the order of the morphological passes applied by MaskRefiner.
type Policy int

const (
	// PolicyOpen erodes then dilates. Small specks disappear and the main blob
	// gets its boundary back. Used for the slot silhouette.
	PolicyOpen Policy = iota
	// PolicyClose dilates then erodes. Seams inside the piece are filled before
	// the boundary is pulled back in. Used for the piece image.
	PolicyClose
)

func (p Policy) String() string {
	switch p {
	case PolicyOpen:
		return "open"
	case PolicyClose:
		return "close"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// DefaultCutoff is the binarization level for both the slot and the piece.
const DefaultCutoff = 127

// MaskRefiner turns a difference image into a clean two-valued mask.
type MaskRefiner struct {
	ops    ImageOps
	cutoff uint8
	kernel Kernel
}

// RefinerOption customizes a MaskRefiner.
type RefinerOption func(*MaskRefiner)

// WithCutoff overrides the binarization level.
func WithCutoff(c uint8) RefinerOption {
	return func(r *MaskRefiner) { r.cutoff = c }
}

// WithKernel overrides the structuring element.
func WithKernel(k Kernel) RefinerOption {
	return func(r *MaskRefiner) { r.kernel = k }
}

// NewMaskRefiner uses a 5x5 all-ones kernel and cutoff 127 unless overridden.
func NewMaskRefiner(ops ImageOps, opts ...RefinerOption) *MaskRefiner {
	r := &MaskRefiner{
		ops:    ops,
		cutoff: DefaultCutoff,
		kernel: RectKernel(5, 5),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Refine converts src to intensity when it has several channels, binarizes it
// and applies one pass of each morphology in the order chosen by policy.
func (r *MaskRefiner) Refine(src *Image, policy Policy) (*Image, error) {
	gray := src
	if src != nil && src.Channels > 1 {
		var err error
		if gray, err = r.ops.Grayscale(src); err != nil {
			return nil, fmt.Errorf("refine: grayscale: %w", err)
		}
	}

	bin, err := r.ops.Threshold(gray, r.cutoff, ThresholdBinary)
	if err != nil {
		return nil, fmt.Errorf("refine: threshold: %w", err)
	}

	first, second := r.ops.Erode, r.ops.Dilate
	switch policy {
	case PolicyOpen:
	case PolicyClose:
		first, second = r.ops.Dilate, r.ops.Erode
	default:
		return nil, fmt.Errorf("refine: unknown policy %v", policy)
	}

	step, err := first(bin, r.kernel)
	if err != nil {
		return nil, fmt.Errorf("refine: %s first pass: %w", policy, err)
	}
	mask, err := second(step, r.kernel)
	if err != nil {
		return nil, fmt.Errorf("refine: %s second pass: %w", policy, err)
	}
	return mask, nil
}
