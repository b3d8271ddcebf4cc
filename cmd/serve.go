// File: cmd/serve.go
package cmd

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/internal/observability"
	"github.com/xkilldash9x/slidejig/internal/vision"
)

func newServeCmd() *cobra.Command {
	var url string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer slot location requests on NATS until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			nc := cfg.NATS()
			if cmd.Flags().Changed("nats-url") {
				nc.URL = url
			}

			pipeline, err := newPipeline(cfg.Vision())
			if err != nil {
				return fmt.Errorf("failed to build image pipeline: %w", err)
			}

			conn, err := nats.Connect(nc.URL,
				nats.Name("slidejig-vision"),
				nats.MaxReconnects(-1),
				nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
					if err != nil {
						logger.Warn("NATS disconnected", zap.Error(err))
					}
				}),
				nats.ReconnectHandler(func(c *nats.Conn) {
					logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
				}),
			)
			if err != nil {
				return fmt.Errorf("failed to connect to NATS at %s: %w", nc.URL, err)
			}
			defer conn.Close()

			svc := vision.NewService(pipeline, nc.Subject, nc.Queue, logger)
			return svc.Serve(ctx, conn)
		},
	}

	serveCmd.Flags().StringVar(&url, "nats-url", "", "NATS server URL (overrides nats.url)")
	return serveCmd
}
