package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/export"
)

var (
	exportDir    string
	exportMongo  bool
	exportSchema bool
)

var exportCmd = &cobra.Command{
	Use:   "export [TABLE...]",
	Short: "Export tables to CSV files or MongoDB",
	Long: `Export the current version of one or more tables. The default target
is CSV files in the configured export directory; with --mongo, each
table becomes a collection in the configured MongoDB database. With
--schema, also write a YAML snapshot of all tables and relations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) == 0 && !exportSchema {
			return fmt.Errorf("nothing to export: name at least one table or pass --schema")
		}

		cat, cfg, logger, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		if exportSchema {
			dir := exportDir
			if dir == "" {
				dir = cfg.Export.Dir
			}
			path, err := export.WriteSchema(ctx, cat, dir)
			if err != nil {
				return fmt.Errorf("exporting schema: %w", err)
			}
			logger.Info("exported schema snapshot", "path", path)
			fmt.Println(path)
		}

		if exportMongo {
			if cfg.Export.Mongo.ConnectionString == "" || cfg.Export.Mongo.Database == "" {
				return fmt.Errorf("no MongoDB target configured: set export.mongo in the config file")
			}
			exp, err := export.NewMongoExporter(ctx, cfg.Export.Mongo.ConnectionString, cfg.Export.Mongo.Database)
			if err != nil {
				return fmt.Errorf("connecting to MongoDB: %w", err)
			}
			defer exp.Close(ctx)

			for _, arg := range args {
				t, err := resolveTable(cmd, cat, arg)
				if err != nil {
					return err
				}
				n, err := exp.Export(ctx, cat, t.ID)
				if err != nil {
					return fmt.Errorf("exporting %s: %w", t.Name, err)
				}
				logger.Info("exported to mongodb", "table", t.Name, "documents", n)
				fmt.Printf("%s: %d documents\n", t.Name, n)
			}
			return nil
		}

		dir := exportDir
		if dir == "" {
			dir = cfg.Export.Dir
		}
		for _, arg := range args {
			t, err := resolveTable(cmd, cat, arg)
			if err != nil {
				return err
			}
			path, err := export.WriteCSV(ctx, cat, t.ID, dir)
			if err != nil {
				return fmt.Errorf("exporting %s: %w", t.Name, err)
			}
			logger.Info("exported to csv", "table", t.Name, "path", path)
			fmt.Println(path)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "CSV output directory (default from config)")
	exportCmd.Flags().BoolVar(&exportMongo, "mongo", false, "export to the configured MongoDB database")
	exportCmd.Flags().BoolVar(&exportSchema, "schema", false, "write a YAML schema snapshot of the catalog")
	rootCmd.AddCommand(exportCmd)
}
