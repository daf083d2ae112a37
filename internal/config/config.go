package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/focus-dev/focus/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "focus.json"

	// YAMLConfigFileName is the YAML alternative to ConfigFileName.
	YAMLConfigFileName = "focus.yaml"

	// DefaultPort is the default server port.
	DefaultPort = 4000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultMetricsPath is the default Prometheus endpoint.
	DefaultMetricsPath = "/metrics"

	// DefaultSnapshotDir is the default directory of the file snapshot backend.
	DefaultSnapshotDir = ".focus/snapshots"
)

// Snapshot backends.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// Config represents the complete focus.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Stores are the stores hosted by the process.
	Stores []StoreConfig `json:"stores,omitempty" yaml:"stores,omitempty"`

	// Components are the bindings created against the stores.
	Components []ComponentConfig `json:"components,omitempty" yaml:"components,omitempty"`

	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Snapshot contains snapshot storage configuration.
	Snapshot SnapshotConfig `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StoreConfig declares one store.
type StoreConfig struct {
	// Identifier names the store.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Properties is the store definition.
	Properties []string `json:"properties" yaml:"properties"`

	// Values are initial property values.
	Values map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
}

// ComponentConfig declares one component binding.
type ComponentConfig struct {
	// Name identifies the component.
	Name string `json:"name" yaml:"name"`

	// Subscriptions are registered when the component mounts.
	Subscriptions []SubscriptionConfig `json:"subscriptions,omitempty" yaml:"subscriptions,omitempty"`

	// ReferenceNames are nested under "reference" in the derived state.
	ReferenceNames []string `json:"referenceNames,omitempty" yaml:"referenceNames,omitempty"`

	// Shape is the component's data-shape definition.
	Shape []string `json:"shape,omitempty" yaml:"shape,omitempty"`

	// UseDefaultStoreData fills absent shape keys with nil.
	UseDefaultStoreData bool `json:"useDefaultStoreData,omitempty" yaml:"useDefaultStoreData,omitempty"`
}

// SubscriptionConfig subscribes a component to properties of a store.
type SubscriptionConfig struct {
	Store      string   `json:"store" yaml:"store"`
	Properties []string `json:"properties" yaml:"properties"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// MetricsPath is the Prometheus endpoint path. "-" disables it.
	MetricsPath string `json:"metricsPath,omitempty" yaml:"metricsPath,omitempty"`
}

// SnapshotConfig contains snapshot storage settings.
type SnapshotConfig struct {
	// Backend is "file" or "s3".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Dir is the directory used by the file backend.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Bucket is the S3 bucket.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix is the S3 key prefix.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Region is the S3 region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (S3-compatible storage).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Restore names a snapshot restored when the server starts.
	Restore string `json:"restore,omitempty" yaml:"restore,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        DefaultHost,
			Port:        DefaultPort,
			MetricsPath: DefaultMetricsPath,
		},
		Snapshot: SnapshotConfig{
			Backend: BackendFile,
			Dir:     DefaultSnapshotDir,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for focus.json, then focus.yaml.
func Load(dir string) (*Config, error) {
	jsonPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(jsonPath); err == nil {
		return LoadFile(jsonPath)
	}
	yamlPath := filepath.Join(dir, YAMLConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return LoadFile(yamlPath)
	}
	return nil, errors.New("F020").
		WithDetail("No focus.json or focus.yaml found in " + dir).
		WithSuggestion("Create focus.json or pass --config")
}

// LoadFile reads configuration from the specified file path.
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("F020").
				WithDetail("No config file at " + path).
				WithSuggestion("Create focus.json or pass --config")
		}
		return nil, errors.New("F021").Wrap(err)
	}

	cfg, err := Parse(data, isYAML(path))
	if err != nil {
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes a configuration document and applies defaults.
func Parse(data []byte, asYAML bool) (*Config, error) {
	cfg := New()

	var err error
	if asYAML {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("F021").
			WithDetail("Failed to parse config: " + err.Error()).
			WithSuggestion("Check that the config file is valid JSON or YAML")
	}

	cfg.applyDefaults()
	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("F021").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("F021").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}

	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = BackendFile
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = DefaultSnapshotDir
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("Port must be between 0 and 65535")
	}

	stores := make(map[string]StoreConfig, len(c.Stores))
	for _, s := range c.Stores {
		if s.Identifier == "" {
			return invalid("Every store needs an identifier")
		}
		if _, dup := stores[s.Identifier]; dup {
			return invalid("Duplicate store identifier " + strconv.Quote(s.Identifier))
		}
		stores[s.Identifier] = s
	}

	components := make(map[string]bool, len(c.Components))
	for _, comp := range c.Components {
		if comp.Name == "" {
			return invalid("Every component needs a name")
		}
		if components[comp.Name] {
			return invalid("Duplicate component name " + strconv.Quote(comp.Name))
		}
		components[comp.Name] = true

		for _, sub := range comp.Subscriptions {
			if _, ok := stores[sub.Store]; !ok {
				return invalid("Component " + strconv.Quote(comp.Name) +
					" subscribes to unknown store " + strconv.Quote(sub.Store))
			}
		}
	}

	switch c.Snapshot.Backend {
	case BackendFile:
	case BackendS3:
		if c.Snapshot.Bucket == "" {
			return invalid("The s3 snapshot backend needs a bucket")
		}
	default:
		return invalid("Unknown snapshot backend " + strconv.Quote(c.Snapshot.Backend))
	}

	if _, ok := parseLevel(c.Log.Level); !ok {
		return invalid("Unknown log level " + strconv.Quote(c.Log.Level))
	}
	return nil
}

// Store returns the store with the given identifier.
func (c *Config) Store(identifier string) (StoreConfig, bool) {
	for _, s := range c.Stores {
		if s.Identifier == identifier {
			return s, true
		}
	}
	return StoreConfig{}, false
}

// Component returns the component with the given name.
func (c *Config) Component(name string) (ComponentConfig, bool) {
	for _, comp := range c.Components {
		if comp.Name == name {
			return comp, true
		}
	}
	return ComponentConfig{}, false
}

// Address returns the address string for the server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// SnapshotDir returns the snapshot directory, resolved against the config directory.
func (c *Config) SnapshotDir() string {
	if filepath.IsAbs(c.Snapshot.Dir) {
		return c.Snapshot.Dir
	}
	return filepath.Join(c.Dir(), c.Snapshot.Dir)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func invalid(detail string) error {
	return errors.New("F021").WithDetail(detail)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
