package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-intelligence/internal/bootstrap"
	"github.com/kirillkom/document-intelligence/internal/config"
	"github.com/kirillkom/document-intelligence/internal/observability/logging"
)

var (
	dataDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "docctl",
	Short:         "Classify, summarize, search and question PDF documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the PDFs (overrides DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig() config.Config {
	cfg := config.Load()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg
}

// openApp bootstraps the full component graph with logs on stderr.
func openApp(cmd *cobra.Command, cfg config.Config) (*bootstrap.App, error) {
	logger := logging.NewTextLoggerTo(cmd.ErrOrStderr(), "docctl", logLevel)
	return bootstrap.New(cmd.Context(), cfg, "docctl", logger)
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
