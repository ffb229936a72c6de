package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thinkscotty/postmuse/internal/server"
)

func serveCmd(withApp withAppFn) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			slog.Info("Starting PostMuse", "version", version)
			a.seedSamples()

			token, created, err := a.keys.ServerToken()
			if err != nil {
				return fmt.Errorf("load server token: %w", err)
			}
			if created {
				// Shown once; afterwards only `keys rotate-token` reveals a token.
				fmt.Fprintf(cmd.ErrOrStderr(), "Generated API token: %s\n", token)
			}

			srv := server.New(a.cfg.Server, server.Deps{
				DB:       a.db,
				Pipeline: a.pipeline,
				Topics:   a.topics,
				History:  a.history,
				Prefs:    a.prefs,
				Keys:     a.keys,
				Mode:     a.mode,
				Version:  version,
			})

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				slog.Info("Shutting down...")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					slog.Error("Shutdown error", "error", err)
				}
			}()

			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		}),
	}
}
