// internal/imaging/native.go
package imaging

// BackendNative names the pure Go ImageOps implementation.
const BackendNative = "native"

func init() {
	registerBackend(BackendNative, func() ImageOps { return NativeOps{} })
}

// NativeOps implements ImageOps without cgo. Morphology treats pixels outside
// the image as neutral, so borders neither erode nor grow a region.
type NativeOps struct{}

var _ ImageOps = NativeOps{}

// Grayscale uses BT.601 luma. RGBA input is composited over black first, so
// fully transparent pixels read as 0.
func (NativeOps) Grayscale(src *Image) (*Image, error) {
	if err := src.validate("grayscale"); err != nil {
		return nil, err
	}
	if src.Channels == 1 {
		return src.Clone(), nil
	}

	dst := NewImage(src.Width, src.Height, 1)
	n := src.Width * src.Height
	for p := 0; p < n; p++ {
		s := p * src.Channels
		r, g, b := uint32(src.Pix[s]), uint32(src.Pix[s+1]), uint32(src.Pix[s+2])
		y := (299*r + 587*g + 114*b + 500) / 1000
		if src.Channels == 4 {
			y = (y*uint32(src.Pix[s+3]) + 127) / 255
		}
		dst.Pix[p] = byte(y)
	}
	return dst, nil
}

func (NativeOps) Threshold(src *Image, cutoff uint8, mode ThresholdMode) (*Image, error) {
	if err := src.validate("threshold"); err != nil {
		return nil, err
	}
	hi, lo := byte(255), byte(0)
	if mode == ThresholdBinaryInv {
		hi, lo = 0, 255
	}
	dst := NewImage(src.Width, src.Height, src.Channels)
	for i, v := range src.Pix {
		if v > cutoff {
			dst.Pix[i] = hi
		} else {
			dst.Pix[i] = lo
		}
	}
	return dst, nil
}

func (NativeOps) Erode(src *Image, k Kernel) (*Image, error) {
	if err := src.validate("erode"); err != nil {
		return nil, err
	}
	return morph(src, k, func(a, b byte) byte {
		if b < a {
			return b
		}
		return a
	}, 255), nil
}

func (NativeOps) Dilate(src *Image, k Kernel) (*Image, error) {
	if err := src.validate("dilate"); err != nil {
		return nil, err
	}
	return morph(src, k, func(a, b byte) byte {
		if b > a {
			return b
		}
		return a
	}, 0), nil
}

func (NativeOps) FindExternalContours(mask *Image) ([]Contour, error) {
	if err := mask.validate("find contours"); err != nil {
		return nil, err
	}
	if mask.Channels != 1 {
		return nil, &PreconditionError{Op: "find contours", Reason: "mask must have a single channel"}
	}
	return findExternalContours(mask), nil
}

// ContourMoments integrates over the polygon with Green's theorem, the same
// definition used for contour moments elsewhere, and normalizes orientation so
// the area is never negative.
func (NativeOps) ContourMoments(c Contour) Moments {
	return contourMoments(c)
}

func contourMoments(c Contour) Moments {
	var m Moments
	if len(c) == 0 {
		return m
	}
	prev := c[len(c)-1]
	for _, p := range c {
		xp, yp := float64(prev.X), float64(prev.Y)
		x, y := float64(p.X), float64(p.Y)
		a := xp*y - x*yp
		m.M00 += a
		m.M10 += a * (xp + x)
		m.M01 += a * (yp + y)
		prev = p
	}
	m.M00 /= 2
	m.M10 /= 6
	m.M01 /= 6
	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}

// morph applies a separable rectangular min/max filter. fill is the identity
// element of op and stands in for out-of-range neighbors.
func morph(src *Image, k Kernel, op func(a, b byte) byte, fill byte) *Image {
	w, h, ch := src.Width, src.Height, src.Channels
	tmp := NewImage(w, h, ch)
	dst := NewImage(w, h, ch)

	// Horizontal pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < ch; c++ {
				acc := fill
				for i := 0; i < k.Size.X; i++ {
					sx := x - k.Anchor.X + i
					if sx < 0 || sx >= w {
						continue
					}
					acc = op(acc, src.Pix[(y*w+sx)*ch+c])
				}
				tmp.Pix[(y*w+x)*ch+c] = acc
			}
		}
	}

	// Vertical pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < ch; c++ {
				acc := fill
				for j := 0; j < k.Size.Y; j++ {
					sy := y - k.Anchor.Y + j
					if sy < 0 || sy >= h {
						continue
					}
					acc = op(acc, tmp.Pix[(sy*w+x)*ch+c])
				}
				dst.Pix[(y*w+x)*ch+c] = acc
			}
		}
	}
	return dst
}
