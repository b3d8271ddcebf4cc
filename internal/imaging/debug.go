// internal/imaging/debug.go
package imaging

import (
	"fmt"
	"image"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	labelFontOnce sync.Once
	labelFont     *truetype.Font
	labelFontErr  error
)

func loadLabelFont() (*truetype.Font, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = truetype.Parse(goregular.TTF)
	})
	return labelFont, labelFontErr
}

// RenderDebug draws the mask with the located contour outlined in red and a
// radius 3 circle on the centroid. label, when set, is printed top-left.
func RenderDebug(mask *Image, loc *Location, label string) (image.Image, error) {
	if err := mask.validate("render debug"); err != nil {
		return nil, err
	}
	dc := gg.NewContextForImage(mask.ToStd())

	if loc != nil && len(loc.Contour) > 0 {
		dc.SetRGB(1, 0, 0)
		dc.SetLineWidth(1)
		for i, p := range loc.Contour {
			// Half-pixel offset puts the stroke on pixel centers.
			x, y := float64(p.X)+0.5, float64(p.Y)+0.5
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		dc.Stroke()

		dc.DrawCircle(float64(loc.Centroid.X)+0.5, float64(loc.Centroid.Y)+0.5, 3)
		dc.Stroke()
	}

	if label != "" {
		f, err := loadLabelFont()
		if err != nil {
			return nil, fmt.Errorf("render debug: font: %w", err)
		}
		dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 10}))
		dc.SetRGB(0, 0.8, 0)
		dc.DrawString(label, 4, 12)
	}
	return dc.Image(), nil
}

// WriteDebugPNG renders and saves the debug visualization to path.
func WriteDebugPNG(path string, mask *Image, loc *Location, label string) error {
	im, err := RenderDebug(mask, loc, label)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, im)
}
