// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/browser/humanoid"
)

// Options configures the Chrome instance.
type Options struct {
	Headless     bool
	NoSandbox    bool
	ExecPath     string
	WindowWidth  int
	WindowHeight int
	// StepInterval is waited between interpolated pointer positions.
	StepInterval time.Duration
}

// Session is a chromedp backed browser.Driver for one tab.
type Session struct {
	ctx         context.Context // tab context, carries the CDP target
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	layout      browser.CanvasLayout

	executor *cdpExecutor
	pointer  *humanoid.EventPointer

	// runActionsFunc and evaluateFunc are replaced in tests.
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error
	evaluateFunc   func(ctx context.Context, expr string, res interface{}) error
}

var _ browser.Driver = (*Session)(nil)

// allocatorOptions builds the exec allocator flags for opts.
func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	return allocOpts
}

// New launches Chrome and opens a tab. The browser lives until Close is called
// or parent is canceled.
func New(parent context.Context, opts Options, layout browser.CanvasLayout, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("chromedp")

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocatorOptions(opts)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))

	// The first Run allocates the browser, so it has to use the long-lived tab context.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("session: launch browser: %w", err)
	}

	s := newSession(tabCtx, cancel, allocCancel, layout, opts.StepInterval, logger)
	logger.Info("Browser session started", zap.Bool("headless", opts.Headless))
	return s, nil
}

func newSession(ctx context.Context, cancel, allocCancel context.CancelFunc, layout browser.CanvasLayout, stepInterval time.Duration, logger *zap.Logger) *Session {
	s := &Session{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger,
		layout:      layout,
	}
	s.runActionsFunc = s.RunActions
	s.evaluateFunc = s.evaluate
	s.executor = newCDPExecutor(logger, func(ctx context.Context, actions ...chromedp.Action) error {
		return s.runActionsFunc(ctx, actions...)
	})
	s.pointer = humanoid.NewEventPointer(s.executor, logger, humanoid.Vector2D{}, stepInterval)
	return s
}

// RunActions executes actions on the tab, bounded by ctx.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	combined, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(combined, actions...)
}

// RunBackgroundActions executes actions even when ctx is already canceled,
// bounded by timeout. Used to collect diagnostics after a failure.
func (s *Session) RunBackgroundActions(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	bg, cancel := context.WithTimeout(Detach(ctx), timeout)
	defer cancel()
	return s.runActionsFunc(bg, actions...)
}

func (s *Session) evaluate(ctx context.Context, expr string, res interface{}) error {
	return s.runActionsFunc(ctx, chromedp.Evaluate(expr, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.runActionsFunc(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("session: navigate %s: %w", url, err)
	}
	return nil
}

// WaitVisible returns a *browser.TimeoutError when selector is not visible
// within timeout.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.runActionsFunc(opCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &browser.TimeoutError{Selector: selector, Timeout: timeout, Err: opCtx.Err()}
	}
	return fmt.Errorf("session: wait for %q: %w", selector, err)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.runActionsFunc(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("session: click %q: %w", selector, err)
	}
	return nil
}

func (s *Session) Geometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error) {
	return s.executor.GetElementGeometry(ctx, selector)
}

// CaptureImages reads every widget canvas through toDataURL.
func (s *Session) CaptureImages(ctx context.Context) (*browser.CaptchaImages, error) {
	var urls []string
	expr := fmt.Sprintf("(%s)(%s)", browser.CanvasDataURLJS, jsonEncode(s.layout.Selector))
	if err := s.evaluateFunc(ctx, expr, &urls); err != nil {
		return nil, fmt.Errorf("session: capture canvases: %w", err)
	}
	return browser.DecodeCanvases(urls, s.layout)
}

func (s *Session) Pointer() humanoid.Pointer { return s.pointer }

func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	return s.executor.Sleep(ctx, d)
}

// Screenshot captures the viewport as PNG. It runs detached so it still works
// after the attempt context has been canceled.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.RunBackgroundActions(ctx, 10*time.Second, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("session: screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts down the tab and the browser process.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.logger.Debug("Browser session closed")
	return nil
}
