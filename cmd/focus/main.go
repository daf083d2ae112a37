package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/focus-dev/focus/internal/config"
	"github.com/focus-dev/focus/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗┌─┐┌─┐┬ ┬┌─┐
  ╠╣ │ ││  │ │└─┐
  ╚  └─┘└─┘└─┘└─┘
`

// configPath is the --config flag shared by every command.
var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "focus",
		Short: "Store-bound server components",
		Long: `Focus hosts server-side components whose state is derived from
external stores.

Stores and components are declared in focus.json (or focus.yaml):

  • Components subscribe to store properties
  • Store changes republish the derived component state
  • Live state streams over WebSocket
  • Store snapshots on disk or in S3`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file or directory (default: ./focus.json)")

	rootCmd.AddCommand(
		serveCmd(),
		deriveCmd(),
		watchCmd(),
		snapshotCmd(),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads the config named by --config and installs its logger.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	switch fi, statErr := os.Stat(configPath); {
	case configPath == "":
		cfg, err = config.Load(".")
	case statErr == nil && fi.IsDir():
		cfg, err = config.Load(configPath)
	default:
		cfg, err = config.LoadFile(configPath)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.SetDefault(newLogger(cfg))
	return cfg, nil
}

// newLogger builds the process logger from the log section. Logs go to
// stderr so command output stays machine readable.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// printBanner prints the Focus ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
