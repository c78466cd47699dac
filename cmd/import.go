package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/importer"
)

var importProfile bool

var importCmd = &cobra.Command{
	Use:   "import FILE [FILE...]",
	Short: "Import CSV files into the catalog",
	Long: `Import one or more CSV files. Column types are sniffed from the data
and each file becomes a versioned table in the catalog.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat, _, logger, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOLUMNS\tROWS")
		for _, path := range args {
			ds, err := importer.ReadCSVFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			t, err := cat.ImportTable(ctx, ds.Name, "csv", ds.Columns, ds.Rows)
			if err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}
			logger.Info("imported table", "name", t.Name, "rows", t.RowCount)
			if importProfile {
				if _, err := cat.ProfileTable(ctx, t.ID); err != nil {
					return fmt.Errorf("profiling %s: %w", t.Name, err)
				}
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", t.ID, t.Name, len(t.Columns), t.RowCount)
		}
		return w.Flush()
	},
}

func init() {
	importCmd.Flags().BoolVar(&importProfile, "profile", false, "profile each table after import")
	rootCmd.AddCommand(importCmd)
}
