package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/importer"
)

var discoverImport bool

var discoverCmd = &cobra.Command{
	Use:   "discover [TABLE...]",
	Short: "List or import tables from the configured PostgreSQL source",
	Long: `Connect to the PostgreSQL source from the config file and list its
tables. With --import, fetch the named tables (or all tables when none
are named) into the catalog.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat, cfg, logger, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		if cfg.Source.Host == "" || cfg.Source.Database == "" {
			return fmt.Errorf("no source configured: set source.host and source.database in the config file")
		}

		pg := importer.NewPostgres(&cfg.Source)
		if err := pg.Connect(ctx); err != nil {
			return fmt.Errorf("connecting to source: %w", err)
		}
		defer pg.Close()

		names := args
		if len(names) == 0 {
			names, err = pg.ListTables(ctx)
			if err != nil {
				return fmt.Errorf("listing tables: %w", err)
			}
		}

		if !discoverImport {
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOLUMNS\tROWS")
		for _, name := range names {
			ds, err := pg.Fetch(ctx, name)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", name, err)
			}
			t, err := cat.ImportTable(ctx, ds.Name, "postgres", ds.Columns, ds.Rows)
			if err != nil {
				return fmt.Errorf("importing %s: %w", name, err)
			}
			logger.Info("imported table from source", "name", t.Name, "rows", t.RowCount)
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", t.ID, t.Name, len(t.Columns), t.RowCount)
		}
		return w.Flush()
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverImport, "import", false, "import the tables into the catalog")
	rootCmd.AddCommand(discoverCmd)
}
