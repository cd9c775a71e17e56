// Package cli implements the diagram-rag command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/diagram-rag/internal/config"
	"github.com/custodia-labs/diagram-rag/internal/runtime"
)

var (
	version = "dev"

	configPath string
	logLevel   string

	// set by PersistentPreRunE
	cfg    *config.Config
	logger *slog.Logger

	// buildServices is replaced in tests
	buildServices = runtime.Build
)

var rootCmd = &cobra.Command{
	Use:           "diagram-rag",
	Short:         "Retrieval support service for process diagram prompts",
	Long:          `diagram-rag indexes PDF documents and enriches prompts about BPMN and PNML diagrams with retrieved context.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}

		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.TrimSpace(loaded.LogLevel))); err != nil {
			return fmt.Errorf("invalid log level %q", loaded.LogLevel)
		}

		cfg = loaded
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

// Execute runs the root command. Command output goes to stdout, logs to stderr.
func Execute(ctx context.Context, v string) error {
	version = v
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// withServices builds the object graph for one command run
func withServices(ctx context.Context, fn func(*runtime.Services) error) error {
	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			logger.Warn("closing services", "error", cerr)
		}
	}()
	return fn(svc)
}
