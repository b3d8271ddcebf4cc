package solver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/browser/humanoid"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

const (
	canvasW = 320
	canvasH = 160

	handleSelector = ".geetest_slider_button"
	canvasSelector = ".geetest_canvas_img canvas"
	verifySelector = `[aria-label="Click to verify"]`
	refreshSelect  = ".geetest_refresh_1"
)

// widget simulates the slider: the piece layer follows the handle horizontally
// while the button is held.
type widget struct {
	original *imaging.Image
	overlay  *imaging.Image
	// pieceBox is the piece's bounding box before dragging. The opaque
	// silhouette is drawn offset by silhouetteOffset inside it.
	pieceBox         image.Rectangle
	silhouetteOffset image.Point
}

func background(w, h int) *imaging.Image {
	im := imaging.NewImage(w, h, 4)
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

func darkened(src *imaging.Image, r image.Rectangle) *imaging.Image {
	out := src.Clone()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			for c := 0; c < 3; c++ {
				out.Set(x, y, c, byte(float64(out.At(x, y, c))*0.3))
			}
		}
	}
	return out
}

// newWidget builds a 320x160 challenge whose 30x30 slot is centered on (200,80).
func newWidget() *widget {
	original := background(canvasW, canvasH)
	return &widget{
		original:         original,
		overlay:          darkened(original, image.Rect(185, 65, 215, 95)),
		pieceBox:         image.Rect(10, 65, 40, 95),
		silhouetteOffset: image.Pt(3, -2),
	}
}

func (w *widget) pieceAt(dx int) *imaging.Image {
	im := imaging.NewImage(canvasW, canvasH, 4)
	r := w.pieceBox.Add(w.silhouetteOffset).Add(image.Pt(dx, 0))
	im.FillRect(r.Intersect(image.Rect(0, 0, canvasW, canvasH)), 230, 220, 210, 255)
	return im
}

// fakePointer tracks position and button state.
type fakePointer struct {
	mu       sync.Mutex
	x, y     float64
	pressed  bool
	pressX   float64
	moves    []humanoid.Vector2D
	releases int
	// releaseErr is returned by every Release after the button state is cleared.
	releaseErr error
}

func (p *fakePointer) MoveTo(ctx context.Context, x, y float64, steps int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.x, p.y = x, y
	p.moves = append(p.moves, humanoid.Vector2D{X: x, Y: y})
	return nil
}

func (p *fakePointer) Press(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pressed = true
	p.pressX = p.x
	return nil
}

func (p *fakePointer) Release(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pressed {
		p.releases++
	}
	p.pressed = false
	return p.releaseErr
}

func (p *fakePointer) offset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pressed {
		return 0
	}
	return int(p.x - p.pressX)
}

// fakeDriver is a browser.Driver backed by a widget.
type fakeDriver struct {
	mu      sync.Mutex
	widget  *widget
	pointer *fakePointer
	handle  humanoid.Box

	navigated []string
	clicks    []string
	sleeps    []time.Duration
	captures  int

	// MockWaitVisible overrides element waits when set.
	MockWaitVisible func(selector string, call int) error
	waitCalls       map[string]int
	// MockCapture overrides CaptureImages when set.
	MockCapture func(call int) (*browser.CaptchaImages, error)
	screenshot  []byte
	closed      bool
}

var _ browser.Driver = (*fakeDriver)(nil)

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		widget:     newWidget(),
		pointer:    &fakePointer{},
		handle:     humanoid.Box{X: 20, Y: 200, Width: 40, Height: 40},
		waitCalls:  map[string]int{},
		screenshot: []byte("png"),
	}
}

func (d *fakeDriver) CaptureImages(ctx context.Context) (*browser.CaptchaImages, error) {
	d.mu.Lock()
	d.captures++
	call := d.captures
	d.mu.Unlock()
	if d.MockCapture != nil {
		return d.MockCapture(call)
	}
	return &browser.CaptchaImages{
		Original: d.widget.original,
		Overlay:  d.widget.overlay,
		Piece:    d.widget.pieceAt(d.pointer.offset()),
	}, nil
}

func (d *fakeDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	d.mu.Lock()
	d.waitCalls[selector]++
	call := d.waitCalls[selector]
	d.mu.Unlock()
	if d.MockWaitVisible != nil {
		return d.MockWaitVisible(selector, call)
	}
	return nil
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks = append(d.clicks, selector)
	return nil
}

func (d *fakeDriver) Geometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error) {
	if selector != handleSelector {
		return nil, fmt.Errorf("no element %q", selector)
	}
	b := d.handle
	return &schemas.ElementGeometry{
		Vertices: []float64{b.X, b.Y, b.X + b.Width, b.Y, b.X + b.Width, b.Y + b.Height, b.X, b.Y + b.Height},
		Width:    int64(b.Width),
		Height:   int64(b.Height),
		TagName:  "DIV",
	}, nil
}

func (d *fakeDriver) Pointer() humanoid.Pointer { return d.pointer }

func (d *fakeDriver) Sleep(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	d.sleeps = append(d.sleeps, dur)
	d.mu.Unlock()
	return ctx.Err()
}

func (d *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if d.screenshot == nil {
		return nil, errors.New("no screenshot")
	}
	return d.screenshot, nil
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

// memRecorder keeps records in memory.
type memRecorder struct {
	mu      sync.Mutex
	records []schemas.AttemptRecord
	err     error
}

func (r *memRecorder) Record(_ context.Context, rec schemas.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return r.err
}

func (r *memRecorder) Recent(_ context.Context, limit int) ([]schemas.AttemptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schemas.AttemptRecord(nil), r.records...), nil
}

func (r *memRecorder) Close() error { return nil }
