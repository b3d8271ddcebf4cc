// internal/browser/session/context_utils.go
package session

import (
	"context"
	"time"
)

// CombineContext returns a context that carries the values of session (the
// chromedp tab context) and is canceled when either session or op is done.
// chromedp needs the tab in the context values; op carries the caller's deadline.
func CombineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(session)
	if deadline, ok := op.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combinedCtx, cancelDeadline = context.WithDeadline(combinedCtx, deadline)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}

	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()
	return combinedCtx, cancel
}

// valueOnlyContext inherits the values of its parent but ignores its deadline
// and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                       { return nil }
func (valueOnlyContext) Err() error                                  { return nil }

// Detach returns a context that keeps the values of ctx, including the chromedp
// target, but is not canceled when ctx is.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
