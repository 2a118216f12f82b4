package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/basehunter/basehunter/internal/interfaces/http"
)

func serveCmd(flags *rootFlags) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Close()

			metrics := httpapi.NewMetricsRegistry()
			handlers := httpapi.NewHandlers(app.scanner, app.universe, app.fundamentals, app.sentiment, metrics, version)

			serverCfg := httpapi.DefaultServerConfig()
			serverCfg.Host = host
			serverCfg.Port = port
			server := httpapi.NewServer(serverCfg, handlers, metrics)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()
			log.Info().Str("address", server.Address()).Msg("http server listening")

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Bind address")
	cmd.Flags().IntVar(&port, "port", 8000, "Listen port")
	return cmd
}
