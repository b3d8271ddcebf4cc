// internal/browser/session/cdp_executor.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/browser/humanoid"
)

const (
	defaultMouseTimeout    = 10 * time.Second
	defaultGeometryTimeout = 10 * time.Second
)

// cdpExecutor implements humanoid.Executor with chromedp actions.
type cdpExecutor struct {
	logger          *zap.Logger
	mouseTimeout    time.Duration
	geometryTimeout time.Duration
	runActionsFunc  func(ctx context.Context, actions ...chromedp.Action) error // Points to Session.RunActions
}

var _ humanoid.Executor = (*cdpExecutor)(nil)

func newCDPExecutor(logger *zap.Logger, run func(ctx context.Context, actions ...chromedp.Action) error) *cdpExecutor {
	return &cdpExecutor{
		logger:          logger.Named("cdp_executor"),
		mouseTimeout:    defaultMouseTimeout,
		geometryTimeout: defaultGeometryTimeout,
		runActionsFunc:  run,
	}
}

// Sleep pauses inside the browser task queue, respecting the context.
func (e *cdpExecutor) Sleep(ctx context.Context, d time.Duration) error {
	return e.runActionsFunc(ctx, chromedp.Sleep(d))
}

// DispatchMouseEvent dispatches a single mouse event via CDP.
func (e *cdpExecutor) DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error {
	p := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y).
		WithButton(input.MouseButton(data.Button)).
		WithButtons(data.Buttons).
		WithClickCount(int64(data.ClickCount))

	opCtx, cancel := context.WithTimeout(ctx, e.mouseTimeout)
	defer cancel()

	err := e.runActionsFunc(opCtx, p)
	if err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		e.logger.Debug("DispatchMouseEvent timed out.", zap.Duration("timeout", e.mouseTimeout), zap.Error(opCtx.Err()))
		return fmt.Errorf("cdpExecutor DispatchMouseEvent timed out after %v: %w", e.mouseTimeout, opCtx.Err())
	}
	return err
}

// geometryJS returns the border box of the first visible match, or null.
const geometryJS = `
(function(sel) {
	const node = document.querySelector(sel);
	if (!node) return null;
	const rect = node.getBoundingClientRect();
	const style = window.getComputedStyle(node);
	if (rect.width <= 0 || rect.height <= 0 || style.display === 'none' || style.visibility === 'hidden') {
		return null;
	}
	return {
		vertices: [rect.left, rect.top, rect.right, rect.top, rect.right, rect.bottom, rect.left, rect.bottom],
		width: Math.round(rect.width),
		height: Math.round(rect.height),
		tagName: node.tagName || ''
	};
})(%s)`

// GetElementGeometry retrieves the viewport bounding box of a selector.
func (e *cdpExecutor) GetElementGeometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error) {
	var res json.RawMessage

	opCtx, cancel := context.WithTimeout(ctx, e.geometryTimeout)
	defer cancel()

	err := e.runActionsFunc(opCtx,
		chromedp.Evaluate(fmt.Sprintf(geometryJS, jsonEncode(selector)), &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}),
	)
	if err != nil {
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout getting geometry for '%s': %w", selector, opCtx.Err())
		}
		return nil, fmt.Errorf("failed JS evaluation for geometry '%s': %w", selector, err)
	}

	if len(res) == 0 || string(res) == "null" {
		e.logger.Debug("Element geometry evaluation returned null (not found or not visible).", zap.String("selector", selector))
		return nil, fmt.Errorf("element '%s' not found or not visible", selector)
	}

	var geom schemas.ElementGeometry
	if err := json.Unmarshal(res, &geom); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geometry for '%s': %w (payload: %s)", selector, err, string(res))
	}
	if geom.Width <= 0 || geom.Height <= 0 {
		return nil, fmt.Errorf("element '%s' not found or not visible (invalid dimensions: width=%d, height=%d)", selector, geom.Width, geom.Height)
	}
	return &geom, nil
}

// jsonEncode is a helper to safely encode a value (especially strings) for JS injection.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
