// File: cmd/analyze.go
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/internal/observability"
	"github.com/xkilldash9x/slidejig/internal/solver"
)

func newAnalyzeCmd() *cobra.Command {
	var concurrency int
	var format string

	analyzeCmd := &cobra.Command{
		Use:   "analyze [dirs...]",
		Short: "Run the vision pipeline over saved samples and summarize the results.",
		Long: `Analyze walks each directory for saved samples (original, overlay and an
optional piece image) and reports the slot, piece and drag offset of each.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			pipeline, err := newPipeline(cfg.Vision())
			if err != nil {
				return fmt.Errorf("failed to build image pipeline: %w", err)
			}

			dirs, err := solver.FindSamples(args...)
			if err != nil {
				return fmt.Errorf("failed to find samples: %w", err)
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no samples found under %v", args)
			}

			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.Solver().Concurrency
			}
			logger.Info("Analyzing samples", zap.Int("samples", len(dirs)), zap.Int("concurrency", concurrency))

			reports, summary, err := solver.Analyze(ctx, pipeline, dirs, concurrency, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format != formatText {
				return writeStructured(out, format, struct {
					Samples []solver.SampleReport `json:"samples" yaml:"samples"`
					Summary solver.Summary        `json:"summary" yaml:"summary"`
				}{reports, summary})
			}
			return writeAnalysisText(out, reports, summary)
		},
	}

	analyzeCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "samples analyzed in parallel")
	analyzeCmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return analyzeCmd
}

func writeAnalysisText(out io.Writer, reports []solver.SampleReport, s solver.Summary) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLE\tSLOT\tPIECE\tOFFSET\tDIFF\tCONFIDENCE\tERROR")
	for _, r := range reports {
		piece := "-"
		if r.Piece != nil {
			piece = fmt.Sprintf("%d,%d", r.Piece.X, r.Piece.Y)
		}
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%d\t-\t%s\n", r.Dir, r.DiffCount, r.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d,%d\t%s\t%d\t%d\t%.3f\t\n", r.Dir, r.Slot.X, r.Slot.Y, piece, r.Offset, r.DiffCount, r.Confidence)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d sample(s), %d failure(s); slot x %.1f ± %.1f, confidence %.3f ± %.3f, mean diff %.0f px\n",
		s.Samples, s.Failures, s.MeanSlotX, s.StdDevSlotX, s.MeanConfidence, s.StdDevConf, s.MeanDiffCount)
	return err
}
