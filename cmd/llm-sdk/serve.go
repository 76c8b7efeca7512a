package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/earthboundkid/versioninfo/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ncecere/llm-sdk/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the model catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			if addr == "" {
				addr = rt.cfg.HTTPAddr
			}

			app := server.New(server.Options{
				Registry: rt.registry,
				Gatherer: rt.providers.Registry,
				Logger:   rt.logger,
				Version:  versioninfo.Short(),
			})

			wg, ctx := errgroup.WithContext(ctx)
			wg.Go(func() error {
				rt.logger.InfoContext(ctx, "starting HTTP server", "addr", addr, "models", rt.registry.Names())
				if err := app.Listen(addr); err != nil {
					return fmt.Errorf("HTTP server error: %w", err)
				}
				return nil
			})
			wg.Go(func() error {
				c := make(chan os.Signal, 1)
				signal.Notify(c, os.Interrupt, syscall.SIGTERM)
				defer signal.Stop(c)

				select {
				case <-ctx.Done():
				case <-c:
					rt.logger.InfoContext(ctx, "shutting down")
				}
				cancel()
				return app.ShutdownWithContext(context.WithoutCancel(ctx))
			})

			if err := wg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to LLM_SDK_HTTP_ADDR)")
	return cmd
}
