package solver

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// SampleReport is the analysis of one saved sample.
type SampleReport struct {
	Dir        string         `json:"dir" yaml:"dir"`
	Slot       imaging.Point  `json:"slot" yaml:"slot"`
	Piece      *imaging.Point `json:"piece,omitempty" yaml:"piece,omitempty"`
	DiffCount  int            `json:"diff_count" yaml:"diff_count"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	// Offset is the handle travel that would align the piece, slot.x - piece.x.
	Offset int   `json:"offset,omitempty" yaml:"offset,omitempty"`
	Err    error `json:"-" yaml:"-"`
	// Error mirrors Err for serialization.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary aggregates the successful reports of a batch.
type Summary struct {
	Samples        int     `json:"samples" yaml:"samples"`
	Failures       int     `json:"failures" yaml:"failures"`
	MeanSlotX      float64 `json:"mean_slot_x" yaml:"mean_slot_x"`
	StdDevSlotX    float64 `json:"stddev_slot_x" yaml:"stddev_slot_x"`
	MeanConfidence float64 `json:"mean_confidence" yaml:"mean_confidence"`
	StdDevConf     float64 `json:"stddev_confidence" yaml:"stddev_confidence"`
	MeanDiffCount  float64 `json:"mean_diff_count" yaml:"mean_diff_count"`
	MeanOffset     float64 `json:"mean_offset,omitempty" yaml:"mean_offset,omitempty"`
}

// Analyze runs the slot and piece pipelines over sample directories with at most
// concurrency samples in flight. A failing sample is reported, not returned;
// the error is only set when ctx ends the batch early. Reports keep the order
// of dirs.
func Analyze(ctx context.Context, pipeline *imaging.Pipeline, dirs []string, concurrency int, logger *zap.Logger) ([]SampleReport, Summary, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	reports := make([]SampleReport, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = analyzeSample(pipeline, dir)
			if reports[i].Err != nil {
				logger.Debug("Sample failed", zap.String("dir", dir), zap.Error(reports[i].Err))
			}
			return nil
		})
	}
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return reports, Summary{}, err
	}
	return reports, Summarize(reports), err
}

func analyzeSample(pipeline *imaging.Pipeline, dir string) SampleReport {
	rep := SampleReport{Dir: dir}
	fail := func(err error) SampleReport {
		rep.Err = err
		rep.Error = err.Error()
		return rep
	}

	sample, err := LoadSample(dir)
	if err != nil {
		return fail(err)
	}
	slot, err := pipeline.LocateSlot(sample.Images.Original, sample.Images.Overlay)
	if slot != nil {
		rep.DiffCount = slot.DiffCount
	}
	if err != nil {
		return fail(err)
	}
	rep.Slot = slot.Centroid
	rep.Confidence = slot.Confidence

	if sample.Images.Piece != nil {
		piece, err := pipeline.LocatePiece(sample.Images.Piece)
		if err != nil {
			return fail(err)
		}
		p := piece.Centroid
		rep.Piece = &p
		rep.Offset = rep.Slot.X - p.X
	}
	return rep
}

// Summarize computes mean and standard deviation over successful reports.
// Standard deviations are zero for fewer than two samples.
func Summarize(reports []SampleReport) Summary {
	sum := Summary{Samples: len(reports)}
	var slotX, conf, diff, offset []float64
	for _, r := range reports {
		if r.Err != nil || r.Dir == "" {
			sum.Failures++
			continue
		}
		slotX = append(slotX, float64(r.Slot.X))
		conf = append(conf, r.Confidence)
		diff = append(diff, float64(r.DiffCount))
		if r.Piece != nil {
			offset = append(offset, float64(r.Offset))
		}
	}
	if len(slotX) == 0 {
		return sum
	}
	sum.MeanSlotX, sum.StdDevSlotX = meanStdDev(slotX)
	sum.MeanConfidence, sum.StdDevConf = meanStdDev(conf)
	sum.MeanDiffCount = stat.Mean(diff, nil)
	if len(offset) > 0 {
		sum.MeanOffset = stat.Mean(offset, nil)
	}
	return sum
}

func meanStdDev(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	m, sd := stat.MeanStdDev(x, nil)
	if math.IsNaN(sd) {
		sd = 0
	}
	return m, sd
}
