// Package solver runs slider challenges end to end: open the widget, locate the
// slot, drag the handle with a mid-drag correction, and record the attempt.
package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/browser/humanoid"
	"github.com/xkilldash9x/slidejig/internal/config"
	"github.com/xkilldash9x/slidejig/internal/imaging"
	"github.com/xkilldash9x/slidejig/internal/store"
)

// Options controls a Solver.
type Options struct {
	URL             string
	VerifySelector  string
	CanvasSelector  string
	HandleSelector  string
	RefreshSelector string
	WaitTimeout     time.Duration
	PostOpenWait    time.Duration

	Drag humanoid.Config

	// MaxAttempts bounds whole attempts, each on a fresh challenge. 1 fails fast.
	MaxAttempts     int
	AttemptInterval time.Duration
}

// OptionsFromConfig reads the challenge, drag and solver sections.
func OptionsFromConfig(cfg config.Interface) Options {
	ch, d, s := cfg.Challenge(), cfg.Drag(), cfg.Solver()
	return Options{
		URL:             ch.URL,
		VerifySelector:  ch.VerifySelector,
		CanvasSelector:  ch.CanvasSelector,
		HandleSelector:  ch.HandleSelector,
		RefreshSelector: ch.RefreshSelector,
		WaitTimeout:     ch.WaitTimeout,
		PostOpenWait:    ch.PostOpenWait,
		Drag: humanoid.Config{
			Steps:          d.Steps,
			SettlePause:    d.SettlePause,
			StepInterval:   d.StepInterval,
			VerticalBias:   d.VerticalBias,
			ReleaseTimeout: d.ReleaseTimeout,
		},
		MaxAttempts:     s.MaxAttempts,
		AttemptInterval: s.AttemptInterval,
	}
}

// Result is the outcome of a successful Solve.
type Result struct {
	RunID    string
	Attempts []schemas.AttemptRecord
	Drag     *humanoid.DragResult
}

// Solver runs challenges on a browser.Driver. It holds no per-attempt state, so
// one Solver can serve several drivers concurrently.
type Solver struct {
	opts      Options
	pipeline  *imaging.Pipeline
	slots     SlotLocator
	recorder  store.Recorder
	artifacts *Artifacts
	limiter   *rate.Limiter
	logger    *zap.Logger
	now       func() time.Time
}

// Option customizes a Solver.
type Option func(*Solver)

// WithSlotLocator replaces the in-process slot pipeline, e.g. with a RemoteLocator.
func WithSlotLocator(l SlotLocator) Option { return func(s *Solver) { s.slots = l } }

// WithRecorder stores every attempt.
func WithRecorder(r store.Recorder) Option { return func(s *Solver) { s.recorder = r } }

// WithArtifacts enables debug output.
func WithArtifacts(a *Artifacts) Option { return func(s *Solver) { s.artifacts = a } }

func New(opts Options, pipeline *imaging.Pipeline, logger *zap.Logger, options ...Option) *Solver {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	limit := rate.Inf
	if opts.AttemptInterval > 0 {
		limit = rate.Every(opts.AttemptInterval)
	}
	s := &Solver{
		opts:     opts,
		pipeline: pipeline,
		slots:    LocalLocator{Pipeline: pipeline},
		recorder: store.NopRecorder{},
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.Named("solver"),
		now:      time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Solve opens the challenge and makes up to MaxAttempts attempts. It returns the
// error of the last attempt when none released the handle.
func (s *Solver) Solve(ctx context.Context, drv browser.Driver) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	logger := s.logger.With(zap.String("run_id", res.RunID), zap.String("url", s.opts.URL))

	if err := drv.Navigate(ctx, s.opts.URL); err != nil {
		return res, fmt.Errorf("solver: navigate: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return res, errors.Join(lastErr, err)
			}
			return res, fmt.Errorf("solver: %w", err)
		}

		rec, drag, err := s.attempt(ctx, drv, res.RunID, attempt)
		res.Attempts = append(res.Attempts, rec)
		if rerr := s.recorder.Record(ctx, rec); rerr != nil {
			logger.Warn("Failed to record attempt", zap.String("attempt_id", rec.ID), zap.Error(rerr))
		}
		if err == nil {
			res.Drag = drag
			logger.Info("Handle released",
				zap.Int("attempt", attempt),
				zap.Float64("final_x", drag.FinalX),
				zap.Float64("final_y", drag.FinalY))
			return res, nil
		}

		lastErr = err
		logger.Warn("Attempt failed", zap.Int("attempt", attempt), zap.Int("max_attempts", s.opts.MaxAttempts), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return res, lastErr
}

// attempt runs one challenge from opening the widget to releasing the handle.
func (s *Solver) attempt(ctx context.Context, drv browser.Driver, runID string, n int) (schemas.AttemptRecord, *humanoid.DragResult, error) {
	rec := schemas.AttemptRecord{
		ID:        uuid.NewString(),
		RunID:     runID,
		Attempt:   n,
		URL:       s.opts.URL,
		StartedAt: s.now().UTC(),
	}
	logger := s.logger.With(zap.String("attempt_id", rec.ID), zap.Int("attempt", n))
	var dir string
	if s.artifacts != nil {
		dir = s.artifacts.AttemptDir(runID, n)
	}

	var meta SampleMeta
	drag, imgs, err := s.run(ctx, drv, n, &rec, &meta, dir, logger)

	rec.Duration = s.now().Sub(rec.StartedAt)
	if drag != nil {
		rec.PlannedX, rec.FinalX, rec.FinalY = drag.PlannedX, drag.FinalX, drag.FinalY
		if drag.PieceMeasured {
			rec.PieceX, rec.PieceY = drag.Piece.X, drag.Piece.Y
		}
		rec.FinalState = strings.ToLower(drag.State.String())
	}
	switch {
	case err == nil:
		rec.Outcome = schemas.OutcomeReleased
	case ctx.Err() != nil:
		rec.Outcome = schemas.OutcomeCanceled
		rec.Error = err.Error()
	default:
		rec.Outcome = schemas.OutcomeFailed
		rec.Error = err.Error()
	}

	if s.artifacts != nil {
		if err != nil && s.artifacts.WantsScreenshot() {
			shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			png, serr := drv.Screenshot(shotCtx)
			cancel()
			if serr != nil {
				logger.Debug("Failure screenshot unavailable", zap.Error(serr))
			}
			s.artifacts.Screenshot(dir, png)
		}
		meta.ID, meta.URL, meta.CapturedAt = rec.ID, rec.URL, rec.StartedAt
		meta.FinalX, meta.Outcome = rec.FinalX, string(rec.Outcome)
		if drag != nil && drag.PieceMeasured {
			meta.Piece = &imaging.Point{X: rec.PieceX, Y: rec.PieceY}
		}
		s.artifacts.Sample(dir, imgs, meta)
	}
	return rec, drag, err
}

// run fills rec and meta as the attempt progresses.
func (s *Solver) run(ctx context.Context, drv browser.Driver, n int, rec *schemas.AttemptRecord, meta *SampleMeta, dir string, logger *zap.Logger) (*humanoid.DragResult, *browser.CaptchaImages, error) {
	if err := s.open(ctx, drv, n); err != nil {
		return nil, nil, err
	}

	imgs, err := drv.CaptureImages(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("solver: capture: %w", err)
	}

	slot, err := s.slots.LocateSlot(ctx, imgs)
	if slot != nil {
		rec.DiffCount = slot.DiffCount
		rec.Confidence = slot.Confidence
		s.artifacts.Contours(dir, "contours.png", slot.Mask, slot.Location, contourLabel("slot", slot.Location))
	}
	if err != nil {
		return nil, imgs, err
	}
	rec.SlotX, rec.SlotY = slot.Centroid.X, slot.Centroid.Y
	meta.Slot = &imaging.Point{X: slot.Centroid.X, Y: slot.Centroid.Y}
	logger.Info("Located slot",
		zap.Stringer("slot", slot.Centroid),
		zap.Int("diff_count", slot.DiffCount),
		zap.Float64("confidence", slot.Confidence))

	geo, err := drv.Geometry(ctx, s.opts.HandleSelector)
	if err != nil {
		return nil, imgs, fmt.Errorf("solver: handle: %w", err)
	}
	handle, err := humanoid.BoxFromGeometry(geo)
	if err != nil {
		return nil, imgs, fmt.Errorf("solver: handle: %w", err)
	}

	measurer := &pieceMeasurer{source: drv, pipeline: s.pipeline}
	ctrl := humanoid.NewDragController(drv.Pointer(), measurer, s.opts.Drag, logger, humanoid.WithSleeper(drv.Sleep))
	drag, err := ctrl.Execute(ctx, handle, slot.Centroid)

	if pr := measurer.lastResult(); pr != nil {
		s.artifacts.Contours(dir, "piece_contours.png", pr.Mask, pr.Location, contourLabel("piece", pr.Location))
	}
	return drag, imgs, err
}

// contourLabel captions a debug rendering. Masks without a region get no centroid.
func contourLabel(kind string, loc *imaging.Location) string {
	if loc == nil {
		return kind
	}
	return fmt.Sprintf("%s %v", kind, loc.Centroid)
}

// open brings up a challenge: the verify control on the first attempt, the
// refresh control afterwards, then waits for the canvases.
func (s *Solver) open(ctx context.Context, drv browser.Driver, n int) error {
	trigger := s.opts.VerifySelector
	if n > 1 && s.opts.RefreshSelector != "" {
		trigger = s.opts.RefreshSelector
	}
	if trigger != "" {
		if err := drv.WaitVisible(ctx, trigger, s.opts.WaitTimeout); err != nil {
			return fmt.Errorf("solver: open: %w", err)
		}
		if err := drv.Click(ctx, trigger); err != nil {
			return fmt.Errorf("solver: open: %w", err)
		}
	}
	if err := drv.WaitVisible(ctx, s.opts.CanvasSelector, s.opts.WaitTimeout); err != nil {
		return fmt.Errorf("solver: open: %w", err)
	}
	if err := drv.Sleep(ctx, s.opts.PostOpenWait); err != nil {
		return fmt.Errorf("solver: open: %w", err)
	}
	return nil
}
