package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/focus-dev/focus/internal/config"
	"github.com/focus-dev/focus/internal/errors"
	"github.com/focus-dev/focus/pkg/binding"
	"github.com/focus-dev/focus/pkg/workspace"
)

// watchDebounce coalesces the bursts of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

func watchCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "watch <component>",
		Short: "Print the component state every time a fixture changes",
		Long: `Mount a component against the configured stores, load a snapshot
fixture and print every state the component publishes. Saving the fixture
reloads it into the stores, which republishes the state.

Properties missing from the reloaded fixture keep their previous value.

Examples:
  focus watch profile --data=fixtures/profile.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if data == "" {
				return errors.New("F030").WithDetail("--data is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), cfg, args[0], data)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "Snapshot fixture to load and watch")

	return cmd
}

func runWatch(ctx context.Context, out io.Writer, cfg *config.Config, component, data string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(data)); err != nil {
		return err
	}

	emit := func(name string, st binding.State) {
		if name == component {
			if err := writeState(out, st); err != nil {
				slog.Error("write state", "error", err)
			}
		}
	}
	ws, _, err := openComponent(cfg, component, data,
		workspace.WithStateHandler(emit),
		workspace.WithErrorHandler(emit),
	)
	if err != nil {
		return err
	}
	defer ws.Unmount()

	target := filepath.Clean(data)
	var reload <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload = time.After(watchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-reload:
			reload = nil
			if err := loadFixture(ws, data); err != nil {
				errors.PrintError(os.Stderr, err)
				continue
			}
			slog.Debug("fixture reloaded", "path", data)
		}
	}
}
