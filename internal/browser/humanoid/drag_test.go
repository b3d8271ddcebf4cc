// FILE: ./internal/browser/humanoid/drag_test.go
package humanoid

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// handleBox is centered at (100, 215).
var handleBox = Box{X: 75, Y: 200, Width: 50, Height: 30}

func setupDragTest(t *testing.T, measurer PieceMeasurer) (*DragController, *mockExecutor, *EventPointer) {
	t.Helper()
	exec := newMockExecutor(t)
	logger := zaptest.NewLogger(t)
	pointer := NewEventPointer(exec, logger, Vector2D{}, 0)
	ctrl := NewDragController(pointer, measurer, DefaultConfig(), logger, WithSleeper(exec.Sleep))
	return ctrl, exec, pointer
}

func indexOf(events []schemas.MouseEventData, typ schemas.MouseEventType) int {
	for i, ev := range events {
		if ev.Type == typ {
			return i
		}
	}
	return -1
}

func TestDragController_Execute(t *testing.T) {
	measurer := &mockMeasurer{piece: imaging.Point{X: 45, Y: 12}}
	ctrl, exec, pointer := setupDragTest(t, measurer)

	measurer.MockMeasurePiece = func(ctx context.Context) (imaging.Point, error) {
		// The piece must be measured after the advancing leg has landed.
		assert.Equal(t, Vector2D{X: 140, Y: 215}, pointer.Position())
		assert.Equal(t, []time.Duration{100 * time.Millisecond}, getMockSleeps(exec))
		return measurer.piece, nil
	}

	res, err := ctrl.Execute(context.Background(), handleBox, imaging.Point{X: 40, Y: 10})
	require.NoError(t, err)

	assert.Equal(t, 140.0, res.PlannedX)
	assert.Equal(t, 135.0, res.FinalX, "naive target overshoots by 5")
	assert.Equal(t, 210.0, res.FinalY, "top + height/3")
	assert.Equal(t, StateReleased, res.State)
	assert.Equal(t, StateReleased, ctrl.State())
	assert.Equal(t, 1, measurer.callCount())
	assert.True(t, res.PieceMeasured)
	assert.Equal(t, imaging.Point{X: 45, Y: 12}, res.Piece)

	events := getMockEvents(exec)
	require.Len(t, events, 25+1+25+25+1)

	pressIndex := indexOf(events, schemas.MousePress)
	assert.Equal(t, 25, pressIndex)
	assert.Equal(t, 100.0, events[pressIndex].X)
	assert.Equal(t, 215.0, events[pressIndex].Y)

	for i := 0; i < pressIndex; i++ {
		assert.Equal(t, int64(0), events[i].Buttons, "button must be up while approaching the handle")
	}
	for i := pressIndex + 1; i < len(events)-1; i++ {
		assert.Equal(t, schemas.MouseMove, events[i].Type)
		assert.Equal(t, int64(1), events[i].Buttons, "button must be held during the drag")
	}

	release := events[len(events)-1]
	assert.Equal(t, schemas.MouseRelease, release.Type)
	assert.Equal(t, 135.0, release.X)
	assert.Equal(t, 210.0, release.Y)
	assert.False(t, pointer.Pressed())

	traj := ctrl.Trajectory()
	require.Len(t, traj, 3)
	assert.Equal(t, []State{StateEngaged, StateAdvancing, StateCorrected},
		[]State{traj[0].Phase, traj[1].Phase, traj[2].Phase})
	final, ok := traj.Final()
	require.True(t, ok)
	assert.Equal(t, Vector2D{X: 135, Y: 210}, final)
}

func TestDragController_CorrectionFailureAborts(t *testing.T) {
	measurer := &mockMeasurer{err: fmt.Errorf("piece: %w", imaging.ErrNoForegroundRegion)}
	ctrl, exec, pointer := setupDragTest(t, measurer)

	res, err := ctrl.Execute(context.Background(), handleBox, imaging.Point{X: 40, Y: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, imaging.ErrNoForegroundRegion)
	assert.Contains(t, err.Error(), "drag: correction")
	assert.Equal(t, StateAborted, ctrl.State())
	assert.Equal(t, StateAborted, res.State)
	assert.False(t, res.PieceMeasured)

	events := getMockEvents(exec)
	require.Len(t, events, 25+1+25+1, "no corrected leg without a measurement")
	assert.Equal(t, schemas.MouseRelease, events[len(events)-1].Type)
	assert.Equal(t, 140.0, events[len(events)-1].X)
	assert.False(t, pointer.Pressed())
	assert.Len(t, ctrl.Trajectory(), 2)
}

func TestDragController_DispatchFailureReleases(t *testing.T) {
	measurer := &mockMeasurer{}
	ctrl, exec, _ := setupDragTest(t, measurer)
	exec.returnErr = errors.New("target closed")
	exec.failOnCall = 30 // inside the advancing leg

	_, err := ctrl.Execute(context.Background(), handleBox, imaging.Point{X: 40, Y: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drag: advance")
	assert.Equal(t, StateAborted, ctrl.State())
	assert.Zero(t, measurer.callCount())

	events := getMockEvents(exec)
	assert.Equal(t, schemas.MouseRelease, events[len(events)-1].Type)
}

func TestDragController_PieceAtOriginIsReported(t *testing.T) {
	measurer := &mockMeasurer{piece: imaging.Point{}}
	ctrl, exec, _ := setupDragTest(t, measurer)
	exec.returnErr = errors.New("target closed")
	exec.failOnCall = 60 // inside the corrected leg

	res, err := ctrl.Execute(context.Background(), handleBox, imaging.Point{X: 40, Y: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drag: corrected move")
	assert.Equal(t, StateAborted, res.State)
	assert.True(t, res.PieceMeasured, "a piece at the origin is still a measurement")
	assert.Equal(t, imaging.Point{}, res.Piece)
}

func TestDragController_CanceledDuringSettle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	measurer := &mockMeasurer{}
	ctrl, exec, pointer := setupDragTest(t, measurer)
	exec.MockSleep = func(_ context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := ctrl.Execute(ctx, handleBox, imaging.Point{X: 40, Y: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateAborted, ctrl.State())
	assert.False(t, pointer.Pressed(), "cleanup release must not use the canceled context")
	assert.Zero(t, measurer.callCount())
}

func TestDragController_FailureBeforePress(t *testing.T) {
	measurer := &mockMeasurer{}
	ctrl, exec, _ := setupDragTest(t, measurer)
	exec.returnErr = errors.New("no page")

	_, err := ctrl.Execute(context.Background(), handleBox, imaging.Point{X: 40})
	require.Error(t, err)
	assert.Equal(t, StateAborted, ctrl.State())
	assert.Equal(t, -1, indexOf(getMockEvents(exec), schemas.MouseRelease), "nothing to release")
}

func TestDragController_SingleUse(t *testing.T) {
	ctrl, _, _ := setupDragTest(t, &mockMeasurer{piece: imaging.Point{X: 40}})

	_, err := ctrl.Execute(context.Background(), handleBox, imaging.Point{X: 40})
	require.NoError(t, err)
	_, err = ctrl.Execute(context.Background(), handleBox, imaging.Point{X: 40})
	assert.ErrorIs(t, err, ErrControllerUsed)
}

func TestDragController_EmptyHandle(t *testing.T) {
	ctrl, exec, _ := setupDragTest(t, &mockMeasurer{})
	_, err := ctrl.Execute(context.Background(), Box{X: 10, Y: 10}, imaging.Point{X: 40})
	require.Error(t, err)
	assert.Empty(t, getMockEvents(exec))
}

func TestDragController_Plan(t *testing.T) {
	ctrl, _, _ := setupDragTest(t, &mockMeasurer{})
	plan := ctrl.Plan(handleBox, imaging.Point{X: 40, Y: 10})

	require.Len(t, plan, 2)
	assert.Equal(t, Vector2D{X: 100, Y: 215}, plan[0].Target)
	assert.Equal(t, Vector2D{X: 140, Y: 215}, plan[1].Target)
	assert.Equal(t, 25, plan[1].Steps)
	assert.Equal(t, 100*time.Millisecond, plan[1].PauseAfter)
	assert.Equal(t, StateIdle, ctrl.State(), "planning does not move the pointer")
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
