package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Pabloo22/pokedex-dashboard/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON and chart API",
	Long: `Serve the dashboard operations over HTTP, with Prometheus metrics on /metrics.

Examples:
  pokedex serve
  pokedex serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	a.watch(ctx)

	cfg := a.config
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	readTimeout, writeTimeout := cfg.ServerTimeouts()

	srv := server.New(server.Options{
		Addr:           cfg.Server.Addr,
		RateLimit:      cfg.Server.RateLimit,
		Burst:          cfg.Server.Burst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		Service:        a.service,
		Assets:         a.assets,
		Metrics:        a.metrics,
		Logger:         a.logger,
	})
	return srv.ListenAndServe(ctx)
}
