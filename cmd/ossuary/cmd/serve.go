package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ossuary/ossuary/pkg/api"
	"github.com/ossuary/ossuary/pkg/core/config"
)

var (
	servePort int
	serveDev  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP scoring API",
	Long: `Serve starts ossuary's HTTP API: GET /api/packages/{ecosystem}/{name}
and GET /api/movers, backed by the same orchestrator and cache
the CLI commands use.

Examples:
  ossuary serve                 Start on port 8080
  ossuary serve --port 9000
  ossuary serve --dev           Enable CORS for local frontend dev`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "Enable development mode (CORS: *)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(cmd.OutOrStdout(), "shutting down...")
		cancel()
	}()

	server := api.NewServer(d.orch, d.store, api.Options{
		Port:      servePort,
		DevMode:   serveDev,
		CacheDays: cfg.CacheDays,
	}, d.log)

	return server.Run(ctx)
}
