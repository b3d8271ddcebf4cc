// Package rodsession implements browser.Driver on top of go-rod.
package rodsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/browser/humanoid"
)

// Options configures the launched browser.
type Options struct {
	Headless  bool
	NoSandbox bool
	ExecPath  string
	// ControlURL connects to an already running browser instead of launching one.
	ControlURL string
}

// Session drives one rod page.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	layout  browser.CanvasLayout
	logger  *zap.Logger
	pointer *pointer
}

var _ browser.Driver = (*Session)(nil)

// New launches (or connects to) a browser and opens a blank page.
func New(ctx context.Context, opts Options, layout browser.CanvasLayout, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("rod")

	u := opts.ControlURL
	if u == "" {
		l := launcher.New().Context(ctx).Headless(opts.Headless).Set("disable-gpu")
		if opts.NoSandbox {
			l = l.NoSandbox(true)
		}
		path := opts.ExecPath
		if path == "" {
			path, _ = launcher.LookPath()
		}
		if path != "" {
			l = l.Bin(path)
		}
		var err error
		if u, err = l.Launch(); err != nil {
			return nil, fmt.Errorf("rodsession: launch: %w", err)
		}
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("rodsession: connect: %w", err)
	}
	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("rodsession: open page: %w", err)
	}

	logger.Info("Browser session started", zap.String("control_url", u))
	return &Session{
		browser: b,
		page:    page,
		layout:  layout,
		logger:  logger,
		pointer: &pointer{page: page},
	}, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("rodsession: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("rodsession: load %s: %w", url, err)
	}
	return nil
}

func (s *Session) element(ctx context.Context, selector string, timeout time.Duration) (*rod.Element, error) {
	el, err := s.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return nil, err
	}
	return el.CancelTimeout().Context(ctx), nil
}

// WaitVisible returns a *browser.TimeoutError when selector does not become
// visible within timeout.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := s.page.Context(opCtx).Element(selector)
	if err == nil {
		err = el.WaitVisible()
	}
	if err == nil {
		return nil
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &browser.TimeoutError{Selector: selector, Timeout: timeout, Err: err}
	}
	return fmt.Errorf("rodsession: wait for %q: %w", selector, err)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	el, err := s.element(ctx, selector, 10*time.Second)
	if err != nil {
		return fmt.Errorf("rodsession: click %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("rodsession: click %q: %w", selector, err)
	}
	return nil
}

// Geometry returns the first content quad box of selector.
func (s *Session) Geometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error) {
	el, err := s.element(ctx, selector, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("rodsession: geometry %q: %w", selector, err)
	}
	shape, err := el.Shape()
	if err != nil {
		return nil, fmt.Errorf("rodsession: geometry %q: %w", selector, err)
	}
	box := shape.Box()
	if box == nil {
		return nil, fmt.Errorf("rodsession: element %q has no layout box", selector)
	}
	return geometryFromRect(box, "")
}

func geometryFromRect(r *proto.DOMRect, tag string) (*schemas.ElementGeometry, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("rodsession: element is not interactable (zero size)")
	}
	return &schemas.ElementGeometry{
		Vertices: []float64{
			r.X, r.Y,
			r.X + r.Width, r.Y,
			r.X + r.Width, r.Y + r.Height,
			r.X, r.Y + r.Height,
		},
		Width:   int64(r.Width + 0.5),
		Height:  int64(r.Height + 0.5),
		TagName: tag,
	}, nil
}

// CaptureImages reads every widget canvas through toDataURL.
func (s *Session) CaptureImages(ctx context.Context) (*browser.CaptchaImages, error) {
	res, err := s.page.Context(ctx).Eval(browser.CanvasDataURLJS, s.layout.Selector)
	if err != nil {
		return nil, fmt.Errorf("rodsession: capture canvases: %w", err)
	}
	arr := res.Value.Arr()
	urls := make([]string, len(arr))
	for i, v := range arr {
		urls[i] = v.Str()
	}
	return browser.DecodeCanvases(urls, s.layout)
}

func (s *Session) Pointer() humanoid.Pointer { return s.pointer }

func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return humanoid.Sleep(ctx, d)
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	// The attempt context may already be canceled; use a bounded fresh one.
	bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	buf, err := s.page.Context(bg).Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("rodsession: screenshot: %w", err)
	}
	return buf, nil
}

func (s *Session) Close() error {
	if err := s.browser.Close(); err != nil {
		return fmt.Errorf("rodsession: close: %w", err)
	}
	s.logger.Debug("Browser session closed")
	return nil
}

// pointer adapts the page to humanoid.Pointer. Every event is dispatched on
// page.Context(ctx) so a canceled attempt stops a move between steps.
type pointer struct {
	mu      sync.Mutex
	page    *rod.Page
	pos     proto.Point
	pressed bool
}

// dispatch sends one mouse event at the pointer's position.
func (p *pointer) dispatch(ctx context.Context, typ proto.InputDispatchMouseEventType, at proto.Point, held bool) error {
	buttons := 0
	ev := proto.InputDispatchMouseEvent{Type: typ, X: at.X, Y: at.Y, Buttons: &buttons}
	if held {
		buttons = 1
		ev.Button = proto.InputMouseButtonLeft
	}
	if typ != proto.InputDispatchMouseEventTypeMouseMoved {
		ev.Button = proto.InputMouseButtonLeft
		ev.ClickCount = 1
	}
	return ev.Call(p.page.Context(ctx))
}

// MoveTo moves in steps equal increments, like rod's Mouse.MoveLinear.
func (p *pointer) MoveTo(ctx context.Context, x, y float64, steps int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if steps < 1 {
		steps = 1
	}
	from, to := p.pos, proto.Point{X: x, Y: y}
	step := to.Minus(from).Scale(1 / float64(steps))
	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := from.Add(step.Scale(float64(i)))
		if i == steps {
			next = to
		}
		if err := p.dispatch(ctx, proto.InputDispatchMouseEventTypeMouseMoved, next, p.pressed); err != nil {
			return err
		}
		p.pos = next
	}
	return nil
}

func (p *pointer) Press(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.dispatch(ctx, proto.InputDispatchMouseEventTypeMousePressed, p.pos, true); err != nil {
		return err
	}
	p.pressed = true
	return nil
}

// Release is a no-op when the button is up. The cleanup path calls it with a
// fresh context, which bounds the release event.
func (p *pointer) Release(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pressed {
		return nil
	}
	p.pressed = false
	return p.dispatch(ctx, proto.InputDispatchMouseEventTypeMouseReleased, p.pos, false)
}
