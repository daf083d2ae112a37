package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/focus-dev/focus/internal/config"
	"github.com/focus-dev/focus/internal/errors"
	"github.com/focus-dev/focus/pkg/snapshot"
	"github.com/focus-dev/focus/pkg/workspace"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, list and inspect store snapshots",
		Long: `Manage store snapshots in the configured backend (a local directory or
an S3 bucket).

Examples:
  focus snapshot save --data=fixtures/loaded.yaml
  focus snapshot list
  focus snapshot load latest --yaml`,
	}

	cmd.AddCommand(
		snapshotSaveCmd(),
		snapshotListCmd(),
		snapshotLoadCmd(),
	)

	return cmd
}

func snapshotSaveCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the configured store contents as a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			backend, err := newBackend(cfg)
			if err != nil {
				return err
			}
			name, err := saveSnapshot(cmd.Context(), backend, cfg, data)
			if err != nil {
				return err
			}
			success("Saved snapshot %s", name)
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "Snapshot fixture to load into the stores first")

	return cmd
}

func snapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			backend, err := newBackend(cfg)
			if err != nil {
				return err
			}
			names, err := backend.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				warn("No snapshots saved yet")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func snapshotLoadCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Print a saved snapshot (\"latest\" allowed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			backend, err := newBackend(cfg)
			if err != nil {
				return err
			}
			return loadSnapshot(cmd.Context(), cmd.OutOrStdout(), backend, args[0], asYAML)
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as YAML instead of JSON")

	return cmd
}

// saveSnapshot captures the stores declared in cfg, overlaid with the
// optional fixture, into the backend.
func saveSnapshot(ctx context.Context, backend snapshot.Backend, cfg *config.Config, data string) (string, error) {
	ws, err := workspace.New(cfg)
	if err != nil {
		return "", err
	}
	if data != "" {
		if err := loadFixture(ws, data); err != nil {
			return "", err
		}
	}
	return snapshot.Save(ctx, backend, ws.Capture())
}

func loadSnapshot(ctx context.Context, out io.Writer, backend snapshot.Backend, name string, asYAML bool) error {
	snap, err := snapshot.Load(ctx, backend, name)
	if err != nil {
		return err
	}

	var encoded []byte
	if asYAML {
		encoded, err = snap.EncodeYAML()
	} else {
		encoded, err = snap.Encode()
	}
	if err != nil {
		return err
	}
	_, err = out.Write(encoded)
	return err
}

// newBackend creates the snapshot backend selected in the snapshot section.
func newBackend(cfg *config.Config) (snapshot.Backend, error) {
	switch cfg.Snapshot.Backend {
	case config.BackendS3:
		return snapshot.NewS3Backend(newS3Client(cfg.Snapshot), cfg.Snapshot.Bucket, cfg.Snapshot.Prefix), nil
	case config.BackendFile, "":
		return snapshot.NewFileBackend(cfg.SnapshotDir()), nil
	default:
		return nil, errors.New("F021").WithDetailf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}
}

// newS3Client builds an S3 client from the snapshot section. Credentials
// come from the standard AWS environment variables. A custom endpoint
// switches to path-style addressing for S3-compatible storage.
func newS3Client(sc config.SnapshotConfig) *s3.Client {
	opts := s3.Options{
		Region:      sc.Region,
		Credentials: aws.CredentialsProviderFunc(envCredentials),
	}
	if sc.Endpoint != "" {
		opts.BaseEndpoint = aws.String(sc.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "EnvironmentVariables",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("F010").
			WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set for the s3 snapshot backend")
	}
	return creds, nil
}
