// internal/browser/session/session_test.go
package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// newTestSession builds a Session without a browser. run receives every action.
func newTestSession(t *testing.T, run func(ctx context.Context, actions ...chromedp.Action) error) *Session {
	t.Helper()
	s := newSession(context.Background(), func() {}, func() {}, browser.DefaultCanvasLayout(), 0, zaptest.NewLogger(t))
	s.runActionsFunc = run
	return s
}

func TestSession_WaitVisible(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		var captured []chromedp.Action
		s := newTestSession(t, func(ctx context.Context, actions ...chromedp.Action) error {
			captured = actions
			return nil
		})
		require.NoError(t, s.WaitVisible(context.Background(), ".geetest_canvas_img canvas", time.Second))
		require.Len(t, captured, 1)
	})

	t.Run("timeout", func(t *testing.T) {
		s := newTestSession(t, blockingRun)
		err := s.WaitVisible(context.Background(), ".geetest_canvas_img canvas", 20*time.Millisecond)

		var te *browser.TimeoutError
		require.True(t, errors.As(err, &te), "got %v", err)
		assert.Equal(t, ".geetest_canvas_img canvas", te.Selector)
		assert.Equal(t, 20*time.Millisecond, te.Timeout)
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := newTestSession(t, blockingRun)
		err := s.WaitVisible(ctx, "#x", time.Second)

		var te *browser.TimeoutError
		assert.False(t, errors.As(err, &te))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSession_CaptureImages(t *testing.T) {
	layer := func(v byte) string {
		im := imaging.NewImage(8, 4, 4)
		im.FillRect(image.Rect(0, 0, 8, 4), v, v, v, 255)
		b64, err := imaging.EncodeBase64PNG(im)
		require.NoError(t, err)
		return "data:image/png;base64," + b64
	}

	s := newTestSession(t, func(ctx context.Context, actions ...chromedp.Action) error { return nil })
	var gotExpr string
	s.evaluateFunc = func(ctx context.Context, expr string, res interface{}) error {
		gotExpr = expr
		*(res.(*[]string)) = []string{layer(1), layer(2), layer(3)}
		return nil
	}

	imgs, err := s.CaptureImages(context.Background())
	require.NoError(t, err)
	assert.Contains(t, gotExpr, `".geetest_canvas_img canvas"`)
	assert.Equal(t, byte(1), imgs.Overlay.At(0, 0, 0))
	assert.Equal(t, byte(2), imgs.Piece.At(0, 0, 0))
	assert.Equal(t, byte(3), imgs.Original.At(0, 0, 0))

	s.evaluateFunc = func(ctx context.Context, expr string, res interface{}) error {
		return errors.New("execution context was destroyed")
	}
	_, err = s.CaptureImages(context.Background())
	assert.ErrorContains(t, err, "capture canvases")
}

func TestSession_PointerDispatchesThroughSession(t *testing.T) {
	var mu sync.Mutex
	count := 0
	s := newTestSession(t, func(ctx context.Context, actions ...chromedp.Action) error {
		mu.Lock()
		defer mu.Unlock()
		count += len(actions)
		return nil
	})

	p := s.Pointer()
	assert.Same(t, p, s.Pointer(), "pointer state must carry over between calls")
	require.NoError(t, p.MoveTo(context.Background(), 10, 10, 5))
	require.NoError(t, p.Press(context.Background()))
	require.NoError(t, p.Release(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 7, count)
}

func TestSession_ScreenshotRunsDetached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawErr error
	s := newTestSession(t, func(ctx context.Context, actions ...chromedp.Action) error {
		sawErr = ctx.Err()
		return nil
	})
	_, err := s.Screenshot(ctx)
	require.NoError(t, err)
	assert.NoError(t, sawErr, "screenshot context must not inherit the cancellation")
}

func TestAllocatorOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)
	assert.Len(t, allocatorOptions(Options{Headless: true}), base+1)
	assert.Len(t, allocatorOptions(Options{NoSandbox: true, ExecPath: "/usr/bin/chromium", WindowWidth: 1280, WindowHeight: 800}), base+5)
}
