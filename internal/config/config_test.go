package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/focus-dev/focus/internal/errors"
)

const sampleJSON = `{
  "name": "directory",
  "stores": [
    {"identifier": "users", "properties": ["user", "roles"], "values": {"roles": ["admin"]}},
    {"identifier": "refs", "properties": ["countries"]}
  ],
  "components": [
    {
      "name": "user-detail",
      "subscriptions": [
        {"store": "users", "properties": ["user"]},
        {"store": "refs", "properties": ["countries"]}
      ],
      "referenceNames": ["countries"],
      "shape": ["name", "email"],
      "useDefaultStoreData": true
    }
  ],
  "server": {"port": 8080}
}
`

const sampleYAML = `
name: directory
stores:
  - identifier: users
    properties: [user]
components:
  - name: user-detail
    subscriptions:
      - store: users
        properties: [user]
log:
  level: debug
  format: json
`

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Snapshot.Backend != BackendFile {
		t.Errorf("Snapshot.Backend = %q, want %q", cfg.Snapshot.Backend, BackendFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if !stderrors.Is(err, errors.New("F020")) {
		t.Errorf("Load() on empty dir error = %v, want F020", err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(sampleJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "directory" {
		t.Errorf("Name = %q, want directory", cfg.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want default %q", cfg.Server.Host, DefaultHost)
	}
	if len(cfg.Stores) != 2 {
		t.Fatalf("len(Stores) = %d, want 2", len(cfg.Stores))
	}
	comp, ok := cfg.Component("user-detail")
	if !ok {
		t.Fatal("Component(user-detail) not found")
	}
	if !comp.UseDefaultStoreData || len(comp.Shape) != 2 || comp.ReferenceNames[0] != "countries" {
		t.Errorf("component = %+v", comp)
	}
	users, ok := cfg.Store("users")
	if !ok || users.Values["roles"] == nil {
		t.Errorf("Store(users) = %+v", users)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, YAMLConfigFileName), []byte(sampleYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want default", cfg.Server.Port)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "focus.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if !stderrors.Is(err, errors.New("F021")) {
		t.Errorf("LoadFile() error = %v, want F021", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := Parse([]byte(sampleJSON), false)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(tmpDir, name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo() error = %v", err)
			}
			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if loaded.Name != cfg.Name || len(loaded.Components) != 1 || loaded.Server.Port != 8080 {
				t.Errorf("loaded = %+v", loaded)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "Port",
		},
		{
			name: "duplicate store",
			mutate: func(c *Config) {
				c.Stores = []StoreConfig{{Identifier: "a"}, {Identifier: "a"}}
			},
			wantErr: "Duplicate store",
		},
		{
			name:    "store without identifier",
			mutate:  func(c *Config) { c.Stores = []StoreConfig{{}} },
			wantErr: "identifier",
		},
		{
			name: "unknown store in subscription",
			mutate: func(c *Config) {
				c.Components = []ComponentConfig{{
					Name:          "c",
					Subscriptions: []SubscriptionConfig{{Store: "missing", Properties: []string{"x"}}},
				}}
			},
			wantErr: "unknown store",
		},
		{
			name: "duplicate component",
			mutate: func(c *Config) {
				c.Components = []ComponentConfig{{Name: "c"}, {Name: "c"}}
			},
			wantErr: "Duplicate component",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Snapshot.Backend = BackendS3 },
			wantErr: "bucket",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Snapshot.Backend = "ftp" },
			wantErr: "backend",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestAddressAndSnapshotDir(t *testing.T) {
	cfg := New()
	if got := cfg.Address(); got != "localhost:4000" {
		t.Errorf("Address() = %q", got)
	}

	cfg.configPath = filepath.Join("/srv/app", ConfigFileName)
	if got := cfg.SnapshotDir(); got != filepath.Join("/srv/app", DefaultSnapshotDir) {
		t.Errorf("SnapshotDir() = %q", got)
	}
	cfg.Snapshot.Dir = "/var/snap"
	if got := cfg.SnapshotDir(); got != "/var/snap" {
		t.Errorf("SnapshotDir() = %q, want absolute dir kept", got)
	}
}
