package browser

import (
	"context"
	"time"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/browser/humanoid"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// CaptchaImages holds the three layers rendered by the widget. All three share
// the same dimensions.
type CaptchaImages struct {
	Original *imaging.Image
	Overlay  *imaging.Image
	Piece    *imaging.Image
}

// ImageSource supplies the widget layers on demand. Implementations re-read the
// page on every call, so the piece reflects where it has been dragged.
type ImageSource interface {
	CaptureImages(ctx context.Context) (*CaptchaImages, error)
}

// ElementWaiter blocks until an element is renderable. It returns a *TimeoutError
// when timeout elapses first.
type ElementWaiter interface {
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
}

// Driver is a browser page hosting one challenge widget.
type Driver interface {
	ImageSource
	ElementWaiter

	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Geometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error)
	// Pointer returns the mouse of the page. The same instance is returned on
	// every call so its position and button state carry over.
	Pointer() humanoid.Pointer
	Sleep(ctx context.Context, d time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// CanvasLayout tells a Driver where the widget layers live.
type CanvasLayout struct {
	// Selector matches every canvas of the widget, in document order.
	Selector      string
	OverlayIndex  int
	PieceIndex    int
	OriginalIndex int
}

// DefaultCanvasLayout is the layout of the geetest v4 slider.
func DefaultCanvasLayout() CanvasLayout {
	return CanvasLayout{
		Selector:      ".geetest_canvas_img canvas",
		OverlayIndex:  0,
		PieceIndex:    1,
		OriginalIndex: 2,
	}
}
