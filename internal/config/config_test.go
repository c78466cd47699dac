package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tablewright/tablewright/internal/inference"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "version: 1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Data.Dir == "" {
		t.Error("expected default data directory")
	}
	if cfg.Data.Catalog != filepath.Join(cfg.Data.Dir, "catalog.db") {
		t.Errorf("unexpected catalog path %q", cfg.Data.Catalog)
	}
	if cfg.Source.Port != 5432 {
		t.Errorf("expected default port 5432, got %d", cfg.Source.Port)
	}
	if cfg.Source.Schema != "public" {
		t.Errorf("expected default schema public, got %q", cfg.Source.Schema)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Logging.Level)
	}
	if cfg.Server.Port != 8750 {
		t.Errorf("expected default server port 8750, got %d", cfg.Server.Port)
	}
}

func TestLoadVersionGate(t *testing.T) {
	path := writeConfig(t, "version: 3\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported version")
	} else if !strings.Contains(err.Error(), "unsupported config version") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadSecretResolution(t *testing.T) {
	t.Setenv("TW_TEST_PGPASS", "s3cret")
	path := writeConfig(t, `version: 1
source:
  host: db.example.com
  password: ${ENV:TW_TEST_PGPASS}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.Password != "s3cret" {
		t.Errorf("expected resolved password, got %q", cfg.Source.Password)
	}
}

func TestLoadSecretMissing(t *testing.T) {
	path := writeConfig(t, `version: 1
source:
  password: ${ENV:TW_TEST_DOES_NOT_EXIST}
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unset environment variable")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Source.Host = "localhost"
	cfg.Source.Database = "analytics"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if loaded.Source.Host != "localhost" || loaded.Source.Database != "analytics" {
		t.Errorf("round trip lost source settings: %+v", loaded.Source)
	}
}

func TestMaxConnectionsClamp(t *testing.T) {
	cfg := &Config{Version: CurrentVersion, Source: SourceConfig{MaxConnections: 100}}
	cfg.ApplyDefaults()
	if cfg.Source.MaxConnections != 20 {
		t.Errorf("expected clamp to 20, got %d", cfg.Source.MaxConnections)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := ExpandHome("~/foo/bar")
	want := filepath.Join(home, "foo", "bar")
	if got != want {
		t.Errorf("ExpandHome = %q, want %q", got, want)
	}
	if ExpandHome("/abs/path") != "/abs/path" {
		t.Error("absolute path should pass through")
	}
}

func TestEngineThresholds(t *testing.T) {
	var e EngineConfig
	th := e.Thresholds()
	if th != inference.DefaultThresholds() {
		t.Errorf("zero engine config should yield defaults, got %+v", th)
	}

	e = EngineConfig{MinPatternMeasures: 5, AffixCoverage: 0.6}
	th = e.Thresholds()
	if th.MinPatternMeasures != 5 || th.AffixCoverage != 0.6 {
		t.Errorf("overrides not applied: %+v", th)
	}
	if th.MinRatioMeasures != inference.DefaultThresholds().MinRatioMeasures {
		t.Errorf("unset keys should keep defaults: %+v", th)
	}
}
