package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/catalog"
	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	version  = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "tablewright",
	Short: "Tablewright — tabular data wrangling workbench",
	Long: `Tablewright imports tabular data, profiles it, infers relationships
between tables, and recommends reshape transforms. Data lives in a
local catalog; every transform is versioned and undoable.`,
}

func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.tablewright/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// loadConfig reads the config file, or falls back to defaults when no
// file exists and none was named explicitly.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		def := config.ExpandHome(config.DefaultPath)
		if _, err := os.Stat(def); err != nil {
			return config.Default(), nil
		}
		path = def
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openCatalog sets up logging and opens the catalog from config.
func openCatalog(ctx context.Context) (*catalog.Catalog, *config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.Setup(logLevel, cfg.Logging.Directory)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setting up logging: %w", err)
	}

	cat, err := catalog.Open(ctx, cfg.Data.Catalog, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening catalog: %w", err)
	}
	return cat, cfg, logger, nil
}
