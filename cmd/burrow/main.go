package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/burrowdb/burrow/pkg/api"
	"github.com/burrowdb/burrow/pkg/config"
	"github.com/burrowdb/burrow/pkg/log"
	"github.com/burrowdb/burrow/pkg/namespace"
	"github.com/burrowdb/burrow/pkg/pubsub"
	"github.com/burrowdb/burrow/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "burrow",
	Short: "Burrow - Multi-tenant document store over an embedded KV engine",
	Long: `Burrow is an HTTP document store backed by an embedded ordered
key-value engine. Collections are isolated per tenant through
secret-derived namespaces and support range scans, JSONPath
queries, live subscriptions, bulk import and backup/restore.`,
	Version: Version,
}

var configFile string

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Burrow version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file (env vars take precedence)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Burrow version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Burrow server",
	Long: `Start the HTTP server, opening the embedded database and serving
the document API until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.LogLevel),
			JSONOutput: true,
			Output:     os.Stderr,
		})
		logger := log.WithComponent("main")

		store, err := storage.NewBoltStore(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		// The secrets column family must exist before the first request.
		if !store.CFExists(namespace.SecretsCF) {
			if err := store.CreateCF(namespace.SecretsCF); err != nil {
				return fmt.Errorf("failed to create secrets column family: %w", err)
			}
		}

		fabric := pubsub.NewFabric()
		defer fabric.Close()

		server, err := api.NewServer(cfg, store, fabric)
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown did not complete cleanly")
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}
