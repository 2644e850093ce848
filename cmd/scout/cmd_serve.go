package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shahar-caura/scout/internal/pipeline"
	"github.com/shahar-caura/scout/internal/server"
)

func newServeCmd(logger *slog.Logger, configPath *string) *cobra.Command {
	var addr string
	var noJanitor bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the research assistant API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			c, err := wireClients(cfg, logger)
			if err != nil {
				return err
			}
			defer c.store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !noJanitor {
				go pipeline.RunJanitor(ctx, c.store, cfg.Store.Retention.Duration, pipeline.SweepInterval, logger)
			}

			var watchDir string
			if cfg.Store.Driver == "file" {
				watchDir = cfg.Store.Dir
			}

			srv, err := server.New(cfg.Server, server.Deps{
				Router:   c.router,
				Search:   c.search,
				LLM:      c.llm,
				Store:    c.store,
				WatchDir: watchDir,
				Version:  version,
				Logger:   logger,
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&noJanitor, "no-janitor", false, "do not delete expired sessions in the background")

	return cmd
}
