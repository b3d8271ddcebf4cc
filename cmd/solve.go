// File: cmd/solve.go
package cmd

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/internal/config"
	"github.com/xkilldash9x/slidejig/internal/observability"
	"github.com/xkilldash9x/slidejig/internal/solver"
	"github.com/xkilldash9x/slidejig/internal/vision"
)

// solveFlags mirror config keys; a flag only overrides when set explicitly.
type solveFlags struct {
	url      string
	headless bool
	driver   string
	debug    bool
	attempts int
	remote   bool
}

func newSolveCmd(provider storeProvider, drivers driverFactory) *cobra.Command {
	var f solveFlags

	solveCmd := &cobra.Command{
		Use:   "solve [url]",
		Short: "Open a page, solve its slider challenge and record the attempt.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			applySolveFlags(cmd, cfg, f, args)
			if cfg.Challenge().URL == "" {
				return fmt.Errorf("a challenge URL is required (argument, --url or challenge.url)")
			}
			return runSolve(ctx, cmd, cfg, provider, drivers)
		},
	}

	solveCmd.Flags().StringVarP(&f.url, "url", "u", "", "page hosting the challenge")
	solveCmd.Flags().BoolVar(&f.headless, "headless", true, "run the browser without a window")
	solveCmd.Flags().StringVar(&f.driver, "driver", config.DriverChromedp, "browser driver: chromedp or rod")
	solveCmd.Flags().BoolVar(&f.debug, "debug", false, "write masks, samples and failure screenshots")
	solveCmd.Flags().IntVar(&f.attempts, "attempts", 1, "attempts on fresh challenges before giving up")
	solveCmd.Flags().BoolVar(&f.remote, "remote", false, "locate the slot through the NATS vision service")
	return solveCmd
}

func applySolveFlags(cmd *cobra.Command, cfg config.Interface, f solveFlags, args []string) {
	flags := cmd.Flags()
	if len(args) == 1 {
		cfg.SetChallengeURL(args[0])
	}
	if flags.Changed("url") {
		cfg.SetChallengeURL(f.url)
	}
	if flags.Changed("headless") {
		cfg.SetBrowserHeadless(f.headless)
	}
	if flags.Changed("driver") {
		cfg.SetBrowserDriver(f.driver)
	}
	if flags.Changed("debug") {
		cfg.SetDebugEnabled(f.debug)
	}
	if flags.Changed("attempts") {
		cfg.SetSolverMaxAttempts(f.attempts)
	}
	if flags.Changed("remote") {
		cfg.SetNATSRemote(f.remote)
	}
}

func runSolve(ctx context.Context, cmd *cobra.Command, cfg config.Interface, provider storeProvider, drivers driverFactory) error {
	logger := observability.GetLogger()

	if d := cfg.Browser().Driver; d != config.DriverChromedp && d != config.DriverRod {
		return fmt.Errorf("unknown browser driver %q", d)
	}
	if cfg.Solver().MaxAttempts <= 0 {
		return fmt.Errorf("--attempts must be a positive integer")
	}

	pipeline, err := newPipeline(cfg.Vision())
	if err != nil {
		return fmt.Errorf("failed to build image pipeline: %w", err)
	}

	recorder, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []solver.Option{solver.WithRecorder(recorder)}
	if dc := cfg.Debug(); dc.Enabled {
		opts = append(opts, solver.WithArtifacts(solver.NewArtifacts(dc.Dir, dc.SaveSamples, dc.ScreenshotOnFailure, logger)))
	}

	if nc := cfg.NATS(); nc.Remote {
		conn, err := nats.Connect(nc.URL, nats.Name("slidejig-solver"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", nc.URL, err)
		}
		defer conn.Close()
		client := vision.NewClient(conn, nc.Subject, logger)
		opts = append(opts, solver.WithSlotLocator(solver.RemoteLocator{Client: client, Timeout: nc.RequestTimeout}))
	}

	drv, err := drivers(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if cerr := drv.Close(); cerr != nil {
			logger.Warn("Failed to close browser", zap.Error(cerr))
		}
	}()

	s := solver.New(solver.OptionsFromConfig(cfg), pipeline, logger, opts...)
	res, err := s.Solve(ctx, drv)
	if err != nil {
		return fmt.Errorf("solve failed after %d attempt(s): %w", len(res.Attempts), err)
	}

	last := res.Attempts[len(res.Attempts)-1]
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: released after %d attempt(s), slot (%d,%d), final x %.1f\n",
		res.RunID, len(res.Attempts), last.SlotX, last.SlotY, res.Drag.FinalX)
	return nil
}
