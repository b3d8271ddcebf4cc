package solver

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/browser/humanoid"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// pieceMeasurer re-captures the widget and locates the piece where it is now.
type pieceMeasurer struct {
	source   browser.ImageSource
	pipeline *imaging.Pipeline

	mu   sync.Mutex
	last *imaging.PieceResult
}

var _ humanoid.PieceMeasurer = (*pieceMeasurer)(nil)

func (m *pieceMeasurer) MeasurePiece(ctx context.Context) (imaging.Point, error) {
	imgs, err := m.source.CaptureImages(ctx)
	if err != nil {
		return imaging.Point{}, fmt.Errorf("recapture: %w", err)
	}
	res, err := m.pipeline.LocatePiece(imgs.Piece)

	m.mu.Lock()
	m.last = res
	m.mu.Unlock()

	if err != nil {
		return imaging.Point{}, err
	}
	return res.Centroid, nil
}

// lastResult returns the most recent measurement, which may carry a mask even
// when location failed.
func (m *pieceMeasurer) lastResult() *imaging.PieceResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
