// FILE: ./internal/browser/humanoid/mocks_test.go
package humanoid

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// mockExecutor implements Executor and records everything it is asked to do.
type mockExecutor struct {
	t                *testing.T
	dispatchedEvents []schemas.MouseEventData
	sleepDurations   []time.Duration
	returnErr        error
	mu               sync.Mutex

	// failOnCall makes the Nth dispatch (1-based) return returnErr. Zero fails every call.
	failOnCall int
	callCount  int

	// If set, these replace the default behavior. The override can call the
	// corresponding Default* method when the default logic is still required.
	MockSleep              func(ctx context.Context, d time.Duration) error
	MockDispatchMouseEvent func(ctx context.Context, data schemas.MouseEventData) error
}

func newMockExecutor(t *testing.T) *mockExecutor {
	return &mockExecutor{t: t}
}

func (m *mockExecutor) DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error {
	if m.MockDispatchMouseEvent != nil {
		return m.MockDispatchMouseEvent(ctx, data)
	}
	return m.DefaultDispatchMouseEvent(ctx, data)
}

// DefaultDispatchMouseEvent always records the event first, so cleanup releases
// issued after a failure are visible to the test.
func (m *mockExecutor) DefaultDispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchedEvents = append(m.dispatchedEvents, data)
	m.callCount++

	if m.returnErr != nil && (m.failOnCall == 0 || m.callCount == m.failOnCall) {
		return m.returnErr
	}
	return ctx.Err()
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	if m.MockSleep != nil {
		return m.MockSleep(ctx, d)
	}
	return m.DefaultSleep(ctx, d)
}

func (m *mockExecutor) DefaultSleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleepDurations = append(m.sleepDurations, d)
	return nil
}

// getMockEvents returns a snapshot of the dispatched events.
func getMockEvents(m *mockExecutor) []schemas.MouseEventData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]schemas.MouseEventData(nil), m.dispatchedEvents...)
}

func getMockSleeps(m *mockExecutor) []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.sleepDurations...)
}

// mockMeasurer returns a fixed piece position, or err.
type mockMeasurer struct {
	mu    sync.Mutex
	piece imaging.Point
	err   error
	calls int

	MockMeasurePiece func(ctx context.Context) (imaging.Point, error)
}

func (m *mockMeasurer) MeasurePiece(ctx context.Context) (imaging.Point, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.MockMeasurePiece != nil {
		return m.MockMeasurePiece(ctx)
	}
	return m.piece, m.err
}

func (m *mockMeasurer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
