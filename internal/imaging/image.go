// internal/imaging/image.go
package imaging

import (
	"fmt"
	"image"
	"image/color"
)

// Image is a dense, row-major pixel buffer with one byte per channel.
// Channels is either 1 (intensity / mask), 3 (RGB) or 4 (RGBA, non-premultiplied).
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// Point is an integer position in image-pixel coordinates.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// NewImage allocates a zeroed image.
func NewImage(width, height, channels int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]byte, width*height*channels),
	}
}

// FromStd converts any image.Image into a 4 channel, non-premultiplied RGBA Image.
func FromStd(src image.Image) *Image {
	b := src.Bounds()
	dst := NewImage(b.Dx(), b.Dy(), 4)

	// Fast path for the decoder's native output.
	if nrgba, ok := src.(*image.NRGBA); ok {
		for y := 0; y < dst.Height; y++ {
			row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+dst.Width*4]
			copy(dst.Pix[y*dst.Width*4:], row)
		}
		return dst
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			dst.Pix[i+0] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = c.A
			i += 4
		}
	}
	return dst
}

// ToStd converts the image into an *image.NRGBA. Single channel images are
// expanded to opaque gray and RGB images receive an opaque alpha channel.
func (im *Image) ToStd() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
	n := im.Width * im.Height
	for p := 0; p < n; p++ {
		s := p * im.Channels
		d := p * 4
		switch im.Channels {
		case 1:
			v := im.Pix[s]
			dst.Pix[d], dst.Pix[d+1], dst.Pix[d+2], dst.Pix[d+3] = v, v, v, 255
		case 3:
			dst.Pix[d], dst.Pix[d+1], dst.Pix[d+2], dst.Pix[d+3] = im.Pix[s], im.Pix[s+1], im.Pix[s+2], 255
		default:
			copy(dst.Pix[d:d+4], im.Pix[s:s+4])
		}
	}
	return dst
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	c := *im
	c.Pix = make([]byte, len(im.Pix))
	copy(c.Pix, im.Pix)
	return &c
}

// Size reports the dimensions as an image.Point.
func (im *Image) Size() image.Point { return image.Pt(im.Width, im.Height) }

// SameSize reports whether both images have identical width and height.
func (im *Image) SameSize(other *Image) bool {
	return im.Width == other.Width && im.Height == other.Height
}

// At returns the value of channel c at (x, y).
func (im *Image) At(x, y, c int) byte {
	return im.Pix[(y*im.Width+x)*im.Channels+c]
}

// Set writes v into channel c at (x, y).
func (im *Image) Set(x, y, c int, v byte) {
	im.Pix[(y*im.Width+x)*im.Channels+c] = v
}

// FillRect sets every channel of every pixel in r (clipped to the image) to the
// matching entry of values. values must have Channels entries.
func (im *Image) FillRect(r image.Rectangle, values ...byte) {
	r = r.Intersect(image.Rect(0, 0, im.Width, im.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			off := (y*im.Width + x) * im.Channels
			copy(im.Pix[off:off+im.Channels], values)
		}
	}
}

// CountNonZero returns the number of pixels whose first channel is non-zero.
func (im *Image) CountNonZero() int {
	n := 0
	for i := 0; i < len(im.Pix); i += im.Channels {
		if im.Pix[i] != 0 {
			n++
		}
	}
	return n
}

func (im *Image) validate(op string) error {
	if im == nil {
		return &PreconditionError{Op: op, Reason: "nil image"}
	}
	if im.Width <= 0 || im.Height <= 0 {
		return &PreconditionError{Op: op, Reason: fmt.Sprintf("empty image %dx%d", im.Width, im.Height)}
	}
	switch im.Channels {
	case 1, 3, 4:
	default:
		return &PreconditionError{Op: op, Reason: fmt.Sprintf("unsupported channel count %d", im.Channels)}
	}
	if len(im.Pix) != im.Width*im.Height*im.Channels {
		return &PreconditionError{Op: op, Reason: fmt.Sprintf("buffer holds %d bytes, want %d", len(im.Pix), im.Width*im.Height*im.Channels)}
	}
	return nil
}

// checkSameSize validates both operands and enforces identical dimensions.
func checkSameSize(op string, a, b *Image) error {
	if err := a.validate(op); err != nil {
		return err
	}
	if err := b.validate(op); err != nil {
		return err
	}
	if !a.SameSize(b) {
		return &PreconditionError{Op: op, Want: a.Size(), Got: b.Size(), Reason: "dimension mismatch"}
	}
	return nil
}
