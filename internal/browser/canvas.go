package browser

import (
	"fmt"

	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// CanvasDataURLJS is evaluated in the page and returns the data URL of every
// canvas matched by the selector argument.
const CanvasDataURLJS = `(selector) => Array.from(document.querySelectorAll(selector)).map(c => c.toDataURL('image/png'))`

// DecodeCanvases maps the captured canvas data URLs onto the widget layers.
func DecodeCanvases(dataURLs []string, layout CanvasLayout) (*CaptchaImages, error) {
	pick := func(name string, idx int) (*imaging.Image, error) {
		if idx < 0 || idx >= len(dataURLs) {
			return nil, fmt.Errorf("browser: %s canvas index %d out of range, found %d canvases", name, idx, len(dataURLs))
		}
		im, err := imaging.DecodeBase64(dataURLs[idx])
		if err != nil {
			return nil, fmt.Errorf("browser: %s canvas: %w", name, err)
		}
		return im, nil
	}

	var imgs CaptchaImages
	var err error
	if imgs.Overlay, err = pick("overlay", layout.OverlayIndex); err != nil {
		return nil, err
	}
	if imgs.Piece, err = pick("piece", layout.PieceIndex); err != nil {
		return nil, err
	}
	if imgs.Original, err = pick("original", layout.OriginalIndex); err != nil {
		return nil, err
	}
	if !imgs.Original.SameSize(imgs.Overlay) || !imgs.Original.SameSize(imgs.Piece) {
		return nil, &imaging.PreconditionError{
			Op:     "capture",
			Want:   imgs.Original.Size(),
			Got:    imgs.Overlay.Size(),
			Reason: fmt.Sprintf("layer sizes differ (piece %v)", imgs.Piece.Size()),
		}
	}
	return &imgs, nil
}
