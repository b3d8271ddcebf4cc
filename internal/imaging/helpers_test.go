package imaging

import (
	"image"
)

// gradientBackground returns an opaque RGBA image with smooth, non-flat texture.
func gradientBackground(w, h int) *Image {
	im := NewImage(w, h, 4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := (y*w + x) * 4
			im.Pix[off+0] = byte(90 + (x*120)/w)
			im.Pix[off+1] = byte(140 + (y*60)/h)
			im.Pix[off+2] = byte(200 - (x*50)/w)
			im.Pix[off+3] = 255
		}
	}
	return im
}

// darken scales the RGB channels inside r, which is how the widget draws the
// silhouette of the missing piece.
func darken(src *Image, r image.Rectangle, factor float64) *Image {
	out := src.Clone()
	r = r.Intersect(image.Rect(0, 0, src.Width, src.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			off := (y*src.Width + x) * src.Channels
			for c := 0; c < 3 && c < src.Channels; c++ {
				out.Pix[off+c] = byte(float64(out.Pix[off+c]) * factor)
			}
		}
	}
	return out
}

// maskWith returns a single channel mask with every rectangle filled with 255.
func maskWith(w, h int, rects ...image.Rectangle) *Image {
	m := NewImage(w, h, 1)
	for _, r := range rects {
		m.FillRect(r, 255)
	}
	return m
}

// transparentPiece returns an RGBA canvas, transparent except for an opaque
// light rectangle r.
func transparentPiece(w, h int, r image.Rectangle) *Image {
	im := NewImage(w, h, 4)
	im.FillRect(r, 230, 220, 210, 255)
	return im
}
