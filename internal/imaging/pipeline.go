// internal/imaging/pipeline.go
package imaging

import (
	"fmt"
	"math"
)

// PipelineConfig carries the tunables of the slot and piece pipelines.
type PipelineConfig struct {
	Diff        DiffOptions
	SlotCutoff  uint8
	PieceCutoff uint8
	KernelSize  int
}

// DefaultPipelineConfig mirrors the values the widget was tuned with.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Diff:        DefaultDiffOptions(),
		SlotCutoff:  DefaultCutoff,
		PieceCutoff: DefaultCutoff,
		KernelSize:  5,
	}
}

// Pipeline wires DiffEngine, MaskRefiner and ContourLocator around one ImageOps.
type Pipeline struct {
	diff    *DiffEngine
	slot    *MaskRefiner
	piece   *MaskRefiner
	locator *ContourLocator
}

// SlotResult describes where the missing piece belongs.
type SlotResult struct {
	*Location
	Mask      *Image
	DiffCount int
	// Confidence is the share of differing pixels covered by the selected contour.
	Confidence float64
}

// PieceResult describes the visual center of the movable piece.
type PieceResult struct {
	*Location
	Mask *Image
}

func NewPipeline(ops ImageOps, cfg PipelineConfig) *Pipeline {
	k := cfg.KernelSize
	if k <= 0 {
		k = 5
	}
	kernel := RectKernel(k, k)
	return &Pipeline{
		diff:    NewDiffEngine(cfg.Diff),
		slot:    NewMaskRefiner(ops, WithCutoff(cfg.SlotCutoff), WithKernel(kernel)),
		piece:   NewMaskRefiner(ops, WithCutoff(cfg.PieceCutoff), WithKernel(kernel)),
		locator: NewContourLocator(ops),
	}
}

// LocateSlot diffs overlay against original, opens the mask and returns the
// centroid of its first external contour.
func (p *Pipeline) LocateSlot(original, overlay *Image) (*SlotResult, error) {
	diff, count, err := p.diff.Diff(original, overlay)
	if err != nil {
		return nil, fmt.Errorf("slot: %w", err)
	}
	mask, err := p.slot.Refine(diff, PolicyOpen)
	if err != nil {
		return nil, fmt.Errorf("slot: %w", err)
	}
	loc, err := p.locator.Locate(mask)
	if err != nil {
		return &SlotResult{Mask: mask, DiffCount: count}, fmt.Errorf("slot: %w", err)
	}

	conf := 0.0
	if count > 0 {
		conf = math.Min(1, loc.Moments.M00/float64(count))
	}
	return &SlotResult{Location: loc, Mask: mask, DiffCount: count, Confidence: conf}, nil
}

// LocatePiece closes the piece image mask and returns the centroid of its
// first external contour.
func (p *Pipeline) LocatePiece(piece *Image) (*PieceResult, error) {
	mask, err := p.piece.Refine(piece, PolicyClose)
	if err != nil {
		return nil, fmt.Errorf("piece: %w", err)
	}
	loc, err := p.locator.Locate(mask)
	if err != nil {
		return &PieceResult{Mask: mask}, fmt.Errorf("piece: %w", err)
	}
	return &PieceResult{Location: loc, Mask: mask}, nil
}
