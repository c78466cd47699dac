package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tablewright/tablewright/internal/inference"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.tablewright/config.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version int          `yaml:"version"`
	Data    DataConfig   `yaml:"data,omitempty"`
	Source  SourceConfig `yaml:"source,omitempty"`
	Export  ExportConfig `yaml:"export,omitempty"`
	Logging LogConfig    `yaml:"logging,omitempty"`
	Server  ServerConfig `yaml:"server,omitempty"`
	Engine  EngineConfig `yaml:"engine,omitempty"`
}

// DataConfig locates the workbench catalog on disk.
type DataConfig struct {
	Dir     string `yaml:"dir,omitempty"`     // default ~/.tablewright/data
	Catalog string `yaml:"catalog,omitempty"` // default <dir>/catalog.db
}

// SourceConfig defines an optional PostgreSQL import source.
type SourceConfig struct {
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Database       string `yaml:"database,omitempty"`
	Schema         string `yaml:"schema,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	SSL            bool   `yaml:"ssl,omitempty"`
	MaxConnections int    `yaml:"max_connections,omitempty"` // default 4, max 20
}

// ExportConfig defines optional export destinations.
type ExportConfig struct {
	Dir   string      `yaml:"dir,omitempty"` // CSV export directory, default <data dir>/exports
	Mongo MongoConfig `yaml:"mongo,omitempty"`
}

// MongoConfig defines a MongoDB export target.
type MongoConfig struct {
	ConnectionString string `yaml:"connection_string,omitempty"`
	Database         string `yaml:"database,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.tablewright/logs/
}

// ServerConfig defines the web UI server settings.
type ServerConfig struct {
	Port int `yaml:"port,omitempty"` // default 8750
}

// EngineConfig exposes the shape-classifier thresholds for tuning.
type EngineConfig struct {
	MinPatternMeasures int     `yaml:"min_pattern_measures,omitempty"`
	MinRatioMeasures   int     `yaml:"min_ratio_measures,omitempty"`
	MeasureDominance   int     `yaml:"measure_dominance,omitempty"`
	AffixCoverage      float64 `yaml:"affix_coverage,omitempty"`
	TypeDiversity      float64 `yaml:"type_diversity,omitempty"`
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// Default returns a usable configuration without reading any file.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.ApplyDefaults()
	return cfg
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Data.Dir == "" {
		c.Data.Dir = ExpandHome("~/.tablewright/data")
	} else {
		c.Data.Dir = ExpandHome(c.Data.Dir)
	}
	if c.Data.Catalog == "" {
		c.Data.Catalog = filepath.Join(c.Data.Dir, "catalog.db")
	} else {
		c.Data.Catalog = ExpandHome(c.Data.Catalog)
	}
	if c.Export.Dir == "" {
		c.Export.Dir = filepath.Join(c.Data.Dir, "exports")
	}
	if c.Source.Port == 0 {
		c.Source.Port = 5432
	}
	if c.Source.Schema == "" {
		c.Source.Schema = "public"
	}
	if c.Source.MaxConnections == 0 {
		c.Source.MaxConnections = 4
	}
	if c.Source.MaxConnections > 20 {
		c.Source.MaxConnections = 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.tablewright/logs/")
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8750
	}
}

var secretPattern = regexp.MustCompile(`\$\{ENV:([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Source.Password, err = ResolveValue(c.Source.Password)
	if err != nil {
		return fmt.Errorf("source password: %w", err)
	}
	c.Export.Mongo.ConnectionString, err = ResolveValue(c.Export.Mongo.ConnectionString)
	if err != nil {
		return fmt.Errorf("mongo connection string: %w", err)
	}
	return nil
}

// ResolveValue resolves ${ENV:NAME} references in a string value.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}
	v := os.Getenv(matches[1])
	if v == "" {
		return "", fmt.Errorf("environment variable %s not set", matches[1])
	}
	return v, nil
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Thresholds maps the engine tuning section onto the shape classifier's
// threshold set. Unset keys fall back to the classifier defaults.
func (e EngineConfig) Thresholds() inference.Thresholds {
	th := inference.DefaultThresholds()
	if e.MinPatternMeasures > 0 {
		th.MinPatternMeasures = e.MinPatternMeasures
	}
	if e.MinRatioMeasures > 0 {
		th.MinRatioMeasures = e.MinRatioMeasures
	}
	if e.MeasureDominance > 0 {
		th.MeasureDominance = e.MeasureDominance
	}
	if e.AffixCoverage > 0 {
		th.AffixCoverage = e.AffixCoverage
	}
	if e.TypeDiversity > 0 {
		th.TypeDiversity = e.TypeDiversity
	}
	return th
}
