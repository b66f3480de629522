package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"linedoc/internal/config"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // --config: optional YAML file of flat keys
	envFile    string // --env-file: explicit dotenv file
	source     *config.Source
)

func main() {
	logger = newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	root := &cobra.Command{
		Use:   "linedoc",
		Short: "LINE file receiver and Document AI extraction pipeline",
		Long: `linedoc receives files and images sent to a LINE official account,
stores them locally and reports back to the sender. The processor side runs
Document AI on stored documents and exports the results to Cloud Storage.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			src, err := config.NewSource(config.SourceOptions{
				EnvFile:    envFile,
				ConfigFile: configPath,
				Logger:     logger,
			})
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			source = src
			logger = newLogger(src.Get("LOG_LEVEL", "info"), src.Get("LOG_FORMAT", "text"))
			logger.Debug("configuration loaded", "environment", src.Environment(), "env_file", src.EnvFile())
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional YAML config file (flat KEY: value pairs)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: .env.<ENVIRONMENT>, .env.local, .env)")

	root.AddCommand(webhookCmd())
	root.AddCommand(processorCmd())
	root.AddCommand(processCmd())
	root.AddCommand(pushCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(configCmd())
	root.AddCommand(initCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("linedoc", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the process logger. Unknown levels fall back to info and
// any format other than "json" is text.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
