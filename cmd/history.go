// File: cmd/history.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/config"
)

func newHistoryCmd(provider storeProvider) *cobra.Command {
	var limit int
	var format string

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent solve attempts from the configured store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be a positive integer")
			}
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runHistory(ctx, cmd.OutOrStdout(), cfg, provider, limit, format)
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of attempts to show")
	historyCmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return historyCmd
}

// runHistory is the testable core of the history command.
func runHistory(ctx context.Context, out io.Writer, cfg config.Interface, provider storeProvider, limit int, format string) error {
	if t := cfg.Store().Type; t == "" || t == config.StoreNone {
		return fmt.Errorf("no attempt store configured (set store.type to %q or %q)", config.StoreRedis, config.StorePostgres)
	}

	recorder, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	recs, err := recorder.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read attempts: %w", err)
	}
	if recs == nil {
		recs = []schemas.AttemptRecord{}
	}

	if format != formatText {
		return writeStructured(out, format, recs)
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintln(out, "no attempts recorded")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tATTEMPT\tOUTCOME\tSLOT\tFINAL X\tDURATION\tERROR")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d,%d\t%.1f\t%s\t%s\n",
			r.StartedAt.Format(time.RFC3339), shortID(r.RunID), r.Attempt, r.Outcome,
			r.SlotX, r.SlotY, r.FinalX, r.Duration.Round(time.Millisecond), r.Error)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
