package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/airset-dev/airset/internal/errors"
	"github.com/airset-dev/airset/pkg/store"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "airset.json"

	// DefaultAddress is the default inspector listen address.
	DefaultAddress = "localhost:7070"

	// DefaultMetricsPath is where the inspector exposes Prometheus metrics.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "airset"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/airset-dev/airset"

	// DefaultCompare is the default comparison used by Store.Set.
	DefaultCompare = "shallow"
)

// Config represents the complete airset.json configuration.
type Config struct {
	// Name identifies the deployment in logs.
	Name string `json:"name,omitempty"`

	// Store contains defaults applied to every store.
	Store StoreConfig `json:"store"`

	// Inspector contains HTTP inspector configuration.
	Inspector InspectorConfig `json:"inspector"`

	// Telemetry contains metrics and tracing configuration.
	Telemetry TelemetryConfig `json:"telemetry"`

	// Documents lists documents served as stores by "airset serve".
	Documents []DocumentConfig `json:"documents,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StoreConfig contains store defaults.
type StoreConfig struct {
	// Debug logs every lifecycle event.
	Debug bool `json:"debug,omitempty"`

	// Compare is the default Set comparison: identity, shallow or deep.
	Compare string `json:"compare,omitempty"`
}

// InspectorConfig contains inspector settings.
type InspectorConfig struct {
	// Address is the host:port to listen on.
	Address string `json:"address,omitempty"`

	// MetricsPath is the Prometheus endpoint. Empty disables it.
	MetricsPath string `json:"metricsPath,omitempty"`

	// DisableMetrics turns the metrics endpoint off.
	DisableMetrics bool `json:"disableMetrics,omitempty"`

	// AllowedOrigins lists origins accepted for watch WebSocket upgrades.
	// Empty means same-origin only; "*" accepts any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// Namespace is the Prometheus metric namespace.
	Namespace string `json:"namespace,omitempty"`

	// Subsystem is the Prometheus metric subsystem.
	Subsystem string `json:"subsystem,omitempty"`

	// Tracing enables OpenTelemetry spans for task runs.
	Tracing bool `json:"tracing,omitempty"`

	// TracerName is the OpenTelemetry tracer name.
	TracerName string `json:"tracerName,omitempty"`
}

// DocumentConfig names a JSON or YAML document to load into a store.
type DocumentConfig struct {
	// Name is the store name. Defaults to the file name without extension.
	Name string `json:"name,omitempty"`

	// File is the document path, relative to the config file.
	File string `json:"file"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Store: StoreConfig{
			Compare: DefaultCompare,
		},
		Inspector: InspectorConfig{
			Address:     DefaultAddress,
			MetricsPath: DefaultMetricsPath,
		},
		Telemetry: TelemetryConfig{
			Namespace:  DefaultNamespace,
			TracerName: DefaultTracerName,
		},
	}
}

// Load loads configuration from airset.json in dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E140").
				WithDetail("No airset.json found in " + filepath.Dir(path)).
				WithSuggestion("Create airset.json or pass --config with the right path")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse airset.json: " + err.Error()).
			WithSuggestion("Check that airset.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from or saved to.
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

func (c *Config) applyDefaults() {
	if c.Store.Compare == "" {
		c.Store.Compare = DefaultCompare
	}
	if c.Inspector.Address == "" {
		c.Inspector.Address = DefaultAddress
	}
	if c.Inspector.MetricsPath == "" && !c.Inspector.DisableMetrics {
		c.Inspector.MetricsPath = DefaultMetricsPath
	}
	if c.Telemetry.Namespace == "" {
		c.Telemetry.Namespace = DefaultNamespace
	}
	if c.Telemetry.TracerName == "" {
		c.Telemetry.TracerName = DefaultTracerName
	}
	for i := range c.Documents {
		if c.Documents[i].Name == "" {
			c.Documents[i].Name = DocumentName(c.Documents[i].File)
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := store.ParseCompareMode(c.Store.Compare); err != nil {
		return errors.New("E121").
			WithDetail("store.compare is " + `"` + c.Store.Compare + `"`).
			WithSuggestion("Use one of: identity, shallow, deep")
	}

	_, port, err := net.SplitHostPort(c.Inspector.Address)
	if err != nil || port == "" {
		return errors.New("E122").
			WithDetail("inspector.address is " + `"` + c.Inspector.Address + `"`).
			WithExample(`"address": "localhost:7070"`).
			Wrap(err)
	}

	if p := c.Inspector.MetricsPath; p != "" && !c.Inspector.DisableMetrics {
		if !strings.HasPrefix(p, "/") || p == "/" ||
			strings.HasPrefix(p, "/stores") || p == "/healthz" {
			return errors.New("E123").
				WithDetail("inspector.metricsPath is " + `"` + p + `"`)
		}
	}

	seen := make(map[string]bool, len(c.Documents))
	for _, d := range c.Documents {
		if d.File == "" {
			return errors.New("E120").WithDetail("every document needs a file")
		}
		if seen[d.Name] {
			return errors.New("E081").WithDetail("document name " + `"` + d.Name + `"` + " is used twice")
		}
		seen[d.Name] = true
	}
	return nil
}

// CompareMode returns the parsed default compare mode.
func (c *Config) CompareMode() store.CompareMode {
	mode, err := store.ParseCompareMode(c.Store.Compare)
	if err != nil {
		return store.CompareShallow
	}
	return mode
}

// MetricsEnabled reports whether the inspector should expose metrics.
func (c *Config) MetricsEnabled() bool {
	return !c.Inspector.DisableMetrics && c.Inspector.MetricsPath != ""
}

// DocumentPath resolves a document file relative to the config directory.
func (c *Config) DocumentPath(d DocumentConfig) string {
	if filepath.IsAbs(d.File) {
		return d.File
	}
	return filepath.Join(c.Dir(), d.File)
}

// DocumentName derives a store name from a file path.
func DocumentName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
