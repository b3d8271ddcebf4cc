package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/imaging"
	"github.com/xkilldash9x/slidejig/internal/vision"
)

// SlotEstimate is where the missing piece belongs, in image pixels.
type SlotEstimate struct {
	Centroid   imaging.Point
	DiffCount  int
	Confidence float64
	// Mask and Location are only set when the slot was located in process.
	Mask     *imaging.Image
	Location *imaging.Location
}

// SlotLocator finds the slot in a captured challenge.
type SlotLocator interface {
	LocateSlot(ctx context.Context, imgs *browser.CaptchaImages) (*SlotEstimate, error)
}

// LocalLocator runs the slot pipeline in process.
type LocalLocator struct {
	Pipeline *imaging.Pipeline
}

func (l LocalLocator) LocateSlot(_ context.Context, imgs *browser.CaptchaImages) (*SlotEstimate, error) {
	res, err := l.Pipeline.LocateSlot(imgs.Original, imgs.Overlay)
	if err != nil {
		est := &SlotEstimate{}
		if res != nil {
			est.Mask = res.Mask
			est.DiffCount = res.DiffCount
		}
		return est, err
	}
	return &SlotEstimate{
		Centroid:   res.Centroid,
		DiffCount:  res.DiffCount,
		Confidence: res.Confidence,
		Mask:       res.Mask,
		Location:   res.Location,
	}, nil
}

// RemoteLocator asks a vision service over NATS.
type RemoteLocator struct {
	Client *vision.Client
	// Timeout bounds one round trip when positive.
	Timeout time.Duration
}

func (r RemoteLocator) LocateSlot(ctx context.Context, imgs *browser.CaptchaImages) (*SlotEstimate, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	resp, err := r.Client.Locate(ctx, imgs.Original, imgs.Overlay, nil)
	if err != nil {
		est := &SlotEstimate{}
		if resp != nil {
			est.DiffCount = resp.DiffCount
		}
		return est, fmt.Errorf("slot: %w", err)
	}
	return &SlotEstimate{
		Centroid:   imaging.Point{X: resp.SlotX, Y: resp.SlotY},
		DiffCount:  resp.DiffCount,
		Confidence: resp.Confidence,
	}, nil
}
