package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/focus-dev/focus/internal/config"
	"github.com/focus-dev/focus/internal/errors"
	"github.com/focus-dev/focus/pkg/binding"
	"github.com/focus-dev/focus/pkg/snapshot"
	"github.com/focus-dev/focus/pkg/workspace"
)

func deriveCmd() *cobra.Command {
	var (
		only string
		data string
		errs bool
	)

	cmd := &cobra.Command{
		Use:   "derive <component>",
		Short: "Print the derived state of a component",
		Long: `Mount a component against the configured stores and print its derived
state as JSON.

Store contents come from the initial values in focus.json, overlaid with
an optional snapshot fixture (JSON or YAML).

Examples:
  focus derive profile
  focus derive profile --only=user,roles
  focus derive profile --data=fixtures/loaded.yaml
  focus derive profile --errors`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runDerive(cmd.OutOrStdout(), cfg, args[0], data, deriveMode{
				filtered: cmd.Flags().Changed("only"),
				only:     splitList(only),
				errors:   errs,
			})
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "Comma-separated properties to keep (reference properties are always kept)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "Snapshot fixture to load into the stores")
	cmd.Flags().BoolVar(&errs, "errors", false, "Print the error state instead")

	return cmd
}

type deriveMode struct {
	filtered bool
	only     []string
	errors   bool
}

func runDerive(out io.Writer, cfg *config.Config, component, data string, mode deriveMode) error {
	ws, b, err := openComponent(cfg, component, data)
	if err != nil {
		return err
	}
	defer ws.Unmount()

	var st binding.State
	switch {
	case mode.errors:
		st = b.DeriveErrorState()
	case mode.filtered:
		st = b.DeriveFilteredState(mode.only)
	default:
		st = b.DeriveState()
	}
	return writeState(out, st)
}

// openComponent builds the workspace, loads the fixture and mounts it.
func openComponent(cfg *config.Config, component, data string, opts ...workspace.Option) (*workspace.Workspace, *binding.Binding, error) {
	ws, err := workspace.New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	b, ok := ws.Component(component)
	if !ok {
		return nil, nil, errors.New("F003").
			WithDetailf("component %q", component).
			WithSuggestion("Available components: " + strings.Join(ws.ComponentNames(), ", "))
	}
	if data != "" {
		if err := loadFixture(ws, data); err != nil {
			return nil, nil, err
		}
	}
	if err := ws.Mount(); err != nil {
		return nil, nil, err
	}
	return ws, b, nil
}

func loadFixture(ws *workspace.Workspace, path string) error {
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}
	return ws.Restore(snap)
}

func writeState(out io.Writer, st binding.State) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
