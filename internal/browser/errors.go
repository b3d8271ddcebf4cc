package browser

import (
	"fmt"
	"time"
)

// TimeoutError reports a widget element that did not become ready in time.
type TimeoutError struct {
	Selector string
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("browser: %q not ready after %s: %v", e.Selector, e.Timeout, e.Err)
	}
	return fmt.Sprintf("browser: %q not ready after %s", e.Selector, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
