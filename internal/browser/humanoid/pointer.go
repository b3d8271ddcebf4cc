// internal/browser/humanoid/pointer.go
package humanoid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/api/schemas"
)

// EventPointer implements Pointer by dispatching raw mouse events through an
// Executor. It tracks the cursor position and button state between calls.
type EventPointer struct {
	mu           sync.Mutex
	executor     Executor
	logger       *zap.Logger
	stepInterval time.Duration

	currentPos         Vector2D
	currentButtonState schemas.MouseButton
}

var _ Pointer = (*EventPointer)(nil)

// NewEventPointer starts with the cursor at start and no button held.
func NewEventPointer(executor Executor, logger *zap.Logger, start Vector2D, stepInterval time.Duration) *EventPointer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPointer{
		executor:           executor,
		logger:             logger.Named("pointer"),
		stepInterval:       stepInterval,
		currentPos:         start,
		currentButtonState: schemas.ButtonNone,
	}
}

// Position returns the last dispatched cursor position.
func (p *EventPointer) Position() Vector2D {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentPos
}

// Pressed reports whether the left button is held.
func (p *EventPointer) Pressed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentButtonState == schemas.ButtonLeft
}

func (p *EventPointer) MoveTo(ctx context.Context, x, y float64, steps int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var buttons int64
	button := schemas.ButtonNone
	if p.currentButtonState == schemas.ButtonLeft {
		// Bitfield: 1 keeps the left button held for the whole move.
		buttons, button = 1, schemas.ButtonLeft
	}

	for i, pos := range interpolate(p.currentPos, Vector2D{X: x, Y: y}, steps) {
		if i > 0 && p.stepInterval > 0 {
			if err := p.executor.Sleep(ctx, p.stepInterval); err != nil {
				return err
			}
		}
		ev := schemas.MouseEventData{
			Type:    schemas.MouseMove,
			X:       pos.X,
			Y:       pos.Y,
			Button:  button,
			Buttons: buttons,
		}
		if err := p.executor.DispatchMouseEvent(ctx, ev); err != nil {
			return fmt.Errorf("pointer: move step %d: %w", i+1, err)
		}
		p.currentPos = pos
	}
	return nil
}

func (p *EventPointer) Press(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev := schemas.MouseEventData{
		Type:       schemas.MousePress,
		X:          p.currentPos.X,
		Y:          p.currentPos.Y,
		Button:     schemas.ButtonLeft,
		ClickCount: 1,
		Buttons:    1,
	}
	if err := p.executor.DispatchMouseEvent(ctx, ev); err != nil {
		return fmt.Errorf("pointer: press: %w", err)
	}
	p.currentButtonState = schemas.ButtonLeft
	return nil
}

// Release is a no-op when no button is held.
func (p *EventPointer) Release(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentButtonState != schemas.ButtonLeft {
		return nil
	}
	ev := schemas.MouseEventData{
		Type:       schemas.MouseRelease,
		X:          p.currentPos.X,
		Y:          p.currentPos.Y,
		Button:     schemas.ButtonLeft,
		ClickCount: 1,
		Buttons:    0,
	}
	err := p.executor.DispatchMouseEvent(ctx, ev)
	if err != nil {
		// Update state anyway so a stuck button is not released twice.
		p.logger.Error("Failed to dispatch mouse release event, updating state anyway", zap.Error(err))
		err = fmt.Errorf("pointer: release: %w", err)
	}
	p.currentButtonState = schemas.ButtonNone
	return err
}
