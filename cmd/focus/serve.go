package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/focus-dev/focus/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		port    int
		host    string
		restore string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the configured components",
		Long: `Create the configured stores, mount every component and serve them
over HTTP.

Store properties are changed with PUT requests; every change republishes
the state of the subscribed components to their live WebSocket clients.

Examples:
  focus serve
  focus serve --port=8080
  focus serve --restore=latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, host, restore)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from focus.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from focus.json)")
	cmd.Flags().StringVar(&restore, "restore", "", "Snapshot to restore before mounting (\"latest\" allowed)")

	return cmd
}

func runServe(port int, host, restore string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if restore != "" {
		cfg.Snapshot.Restore = restore
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, server.WithSnapshotBackend(backend))
	if err != nil {
		return err
	}

	printBanner()
	fmt.Println("  serve")
	fmt.Println()
	success("Mounted %d components on %d stores",
		len(srv.Workspace().ComponentNames()), len(srv.Workspace().StoreIDs()))
	info("Listening on http://%s", cfg.Address())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
