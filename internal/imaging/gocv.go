//go:build gocv

// internal/imaging/gocv.go
package imaging

import (
	"fmt"

	"gocv.io/x/gocv"
)

// BackendGocv names the OpenCV backed ImageOps, available with -tags gocv.
const BackendGocv = "gocv"

func init() {
	registerBackend(BackendGocv, func() ImageOps { return GocvOps{} })
}

// GocvOps delegates to OpenCV through gocv.
type GocvOps struct{}

var _ ImageOps = GocvOps{}

func matType(channels int) gocv.MatType {
	switch channels {
	case 1:
		return gocv.MatTypeCV8UC1
	case 3:
		return gocv.MatTypeCV8UC3
	default:
		return gocv.MatTypeCV8UC4
	}
}

func toMat(im *Image) (gocv.Mat, error) {
	return gocv.NewMatFromBytes(im.Height, im.Width, matType(im.Channels), im.Pix)
}

func fromMat(m gocv.Mat, channels int) *Image {
	return &Image{Width: m.Cols(), Height: m.Rows(), Channels: channels, Pix: m.ToBytes()}
}

// withMat converts src, runs fn and converts the result back.
func withMat(op string, src *Image, outChannels int, fn func(src gocv.Mat, dst *gocv.Mat)) (*Image, error) {
	if err := src.validate(op); err != nil {
		return nil, err
	}
	in, err := toMat(src)
	if err != nil {
		return nil, fmt.Errorf("imaging: %s: %w", op, err)
	}
	defer in.Close()
	out := gocv.NewMat()
	defer out.Close()
	fn(in, &out)
	return fromMat(out, outChannels), nil
}

func (GocvOps) Grayscale(src *Image) (*Image, error) {
	if src != nil && src.Channels == 1 {
		return src.Clone(), nil
	}
	code := gocv.ColorRGBAToGray
	if src != nil && src.Channels == 3 {
		code = gocv.ColorRGBToGray
	}
	return withMat("grayscale", src, 1, func(in gocv.Mat, out *gocv.Mat) {
		gocv.CvtColor(in, out, code)
	})
}

func (GocvOps) Threshold(src *Image, cutoff uint8, mode ThresholdMode) (*Image, error) {
	typ := gocv.ThresholdBinary
	if mode == ThresholdBinaryInv {
		typ = gocv.ThresholdBinaryInv
	}
	ch := 1
	if src != nil {
		ch = src.Channels
	}
	return withMat("threshold", src, ch, func(in gocv.Mat, out *gocv.Mat) {
		gocv.Threshold(in, out, float32(cutoff), 255, typ)
	})
}

func (GocvOps) Erode(src *Image, k Kernel) (*Image, error) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, k.Size)
	defer kernel.Close()
	ch := 1
	if src != nil {
		ch = src.Channels
	}
	return withMat("erode", src, ch, func(in gocv.Mat, out *gocv.Mat) {
		gocv.Erode(in, out, kernel)
	})
}

func (GocvOps) Dilate(src *Image, k Kernel) (*Image, error) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, k.Size)
	defer kernel.Close()
	ch := 1
	if src != nil {
		ch = src.Channels
	}
	return withMat("dilate", src, ch, func(in gocv.Mat, out *gocv.Mat) {
		gocv.Dilate(in, out, kernel)
	})
}

func (GocvOps) FindExternalContours(mask *Image) ([]Contour, error) {
	if err := mask.validate("find contours"); err != nil {
		return nil, err
	}
	if mask.Channels != 1 {
		return nil, &PreconditionError{Op: "find contours", Reason: "mask must have a single channel"}
	}
	m, err := toMat(mask)
	if err != nil {
		return nil, fmt.Errorf("imaging: find contours: %w", err)
	}
	defer m.Close()

	pv := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer pv.Close()

	contours := make([]Contour, 0, pv.Size())
	for i := 0; i < pv.Size(); i++ {
		pts := pv.At(i).ToPoints()
		c := make(Contour, len(pts))
		for j, p := range pts {
			c[j] = Point{X: p.X, Y: p.Y}
		}
		contours = append(contours, c)
	}
	return contours, nil
}

// ContourMoments uses the polygon integral shared with NativeOps; gocv only
// exposes moments of rasterized images.
func (GocvOps) ContourMoments(c Contour) Moments {
	return contourMoments(c)
}
